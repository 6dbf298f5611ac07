package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"boardchat/client/internal/config"
	"boardchat/client/internal/rest"
	"boardchat/client/internal/wire"
)

// history fetches one page of a channel's messages over REST and prints
// it. Diagnostic tool: no socket, no cache, just the list endpoint and the
// normalizer.
func main() {
	channelFlag := flag.String("channel", "", "board channel to read")
	pageFlag := flag.Int("page", 1, "page number")
	limitFlag := flag.Int("limit", 0, "page size (defaults to configured limit)")
	flag.Parse()
	if *channelFlag == "" {
		log.Fatal("usage: history -channel <channel-id> [-page N] [-limit N]")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	limit := cfg.PageLimit
	if *limitFlag > 0 {
		limit = *limitFlag
	}

	api, err := rest.NewClient(cfg.APIBaseURL, cfg.Token)
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := api.FetchMessages(ctx, *channelFlag, *pageFlag, limit)
	if err != nil {
		log.Fatalf("fetch: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSENT\tFROM\tTEXT")
	for _, raw := range resp.Messages {
		msg, err := wire.ParseMessage(raw)
		if err != nil {
			log.Printf("skipping malformed message: %v", err)
			continue
		}
		sent := ""
		if !msg.CreatedAt.IsZero() {
			sent = msg.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		text := msg.Text
		if msg.IsEdited {
			text += " (edited)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
			msg.ID, sent, msg.Sender.FirstName, msg.Sender.LastName, text)
	}
	w.Flush()

	fmt.Printf("page %d/%d, %d message(s) total\n",
		resp.Pagination.Page, resp.Pagination.TotalPages, resp.Pagination.Total)
}
