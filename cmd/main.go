package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"boardchat/client/internal/auth"
	"boardchat/client/internal/config"
	"boardchat/client/internal/livesync"
	"boardchat/client/internal/models"
	"boardchat/client/internal/rest"
	"boardchat/client/internal/transport"
)

func main() {
	channelFlag := flag.String("channel", "", "board channel to join")
	flag.Parse()
	if *channelFlag == "" {
		log.Fatal("usage: boardchat -channel <channel-id>")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	localID, err := auth.ParticipantID(cfg.Token)
	if err != nil {
		log.Fatalf("token: %v", err)
	}

	api, err := rest.NewClient(cfg.APIBaseURL, cfg.Token)
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	ws := transport.NewClient(cfg.SocketURL, cfg.Token)

	// The update callback closes over the session pointer; the session
	// only starts delivering events after Connect, well past assignment.
	var sess *livesync.Session
	printed := 0
	sess = livesync.New(livesync.Options{
		Transport: ws,
		API:       api,
		LocalID:   localID,
		PageLimit: cfg.PageLimit,
		OnUpdate: func() {
			printed = printUpdates(sess, printed)
		},
		OnError: func(err error) {
			log.Printf("connection lost: %v", err)
		},
	})

	if err := sess.Connect(); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer sess.Close()

	ctx := context.Background()
	if err := sess.JoinChannel(ctx, *channelFlag); err != nil {
		log.Fatalf("join %s: %v", *channelFlag, err)
	}

	if page, ok := sess.Page(); ok {
		fmt.Printf("-- %d message(s), page %d/%d --\n",
			page.Pagination.Total, page.Pagination.Page, page.Pagination.TotalPages)
	}

	go readLines(ctx, sess)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down")
}

// printUpdates prints messages appended since the last call plus the
// current typing line, and returns the new printed count.
func printUpdates(sess *livesync.Session, printed int) int {
	page, ok := sess.Page()
	if ok {
		if len(page.Messages) < printed {
			printed = len(page.Messages)
		}
		for _, m := range page.Messages[printed:] {
			printMessage(m)
		}
		printed = len(page.Messages)
	}
	if typing := sess.TypingUsers(); len(typing) > 0 {
		names := make([]string, 0, len(typing))
		for _, u := range typing {
			names = append(names, u.Name)
		}
		fmt.Printf("… %s typing\n", strings.Join(names, ", "))
	}
	return printed
}

func printMessage(m models.Message) {
	name := strings.TrimSpace(m.Sender.FirstName + " " + m.Sender.LastName)
	if name == "" {
		name = m.SenderID
	}
	suffix := ""
	if m.IsEdited {
		suffix = " (edited)"
	}
	fmt.Printf("<%s> %s%s\n", name, m.Text, suffix)
}

// readLines turns stdin lines into sends. Lines starting with a slash are
// commands: /edit <id> <text>, /delete <id>, /quit.
func readLines(ctx context.Context, sess *livesync.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case line == "/quit":
			sess.Close()
			os.Exit(0)
		case strings.HasPrefix(line, "/edit "):
			fields := strings.SplitN(line, " ", 3)
			if len(fields) < 3 {
				fmt.Println("usage: /edit <id> <text>")
				continue
			}
			if _, err := sess.EditMessage(ctx, fields[1], fields[2]); err != nil {
				log.Printf("edit failed: %v", err)
			}
		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			if err := sess.DeleteMessage(ctx, id); err != nil {
				log.Printf("delete failed: %v", err)
			}
		default:
			sess.Keystroke()
			if _, err := sess.SendMessage(ctx, line, "", nil); err != nil {
				log.Printf("send failed: %v", err)
			}
		}
	}
}
