// Package main provides a terminal chat client for the supportbot API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/shank50/supportbotai/internal/domain"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "supportbot server address")
	sessionID := flag.String("session", "", "resume an existing session instead of creating one")
	follow := flag.Bool("follow", false, "print turns pushed over the live stream")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	flag.Parse()

	log.SetFlags(log.Ltime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := NewClient(*addr, *timeout)

	sid := *sessionID
	if sid == "" {
		var err error
		if sid, err = client.CreateSession(ctx); err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		fmt.Printf("Session created: %s\n", sid)
	} else {
		snap, err := client.Snapshot(ctx, sid)
		if err != nil {
			log.Fatalf("Failed to resume session: %v", err)
		}
		fmt.Printf("Resumed session %s with %d messages\n", sid, len(snap.Messages))
		printTimeline(os.Stdout, snap.Timeline)
	}

	if *follow {
		go func() {
			err := client.Follow(ctx, sid, func(ev domain.StreamEvent) {
				if ev.Type == "turn" && ev.Turn != nil {
					fmt.Printf("\n[stream] turn %s completed\n", ev.Turn.UserMessage.MessageID)
				}
			})
			if err != nil {
				log.Printf("Stream closed: %v", err)
			}
		}()
	}

	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /summary, /history, /quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		var input string
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			input = strings.TrimSpace(line)
		}

		switch input {
		case "":
			continue
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/summary":
			summary, err := client.Summary(ctx, sid)
			if err != nil {
				log.Printf("Summary failed: %v", err)
				continue
			}
			fmt.Printf("Summary: %s\n", summary)
			continue
		case "/history":
			snap, err := client.Snapshot(ctx, sid)
			if err != nil {
				log.Printf("History failed: %v", err)
				continue
			}
			printTimeline(os.Stdout, snap.Timeline)
			continue
		}

		// Input stays blocked until the turn completes.
		result, err := client.Chat(ctx, sid, input)
		if err != nil {
			log.Printf("Send error: %v", err)
			continue
		}
		printTurn(os.Stdout, result)
	}
}

func printTurn(w io.Writer, result *domain.TurnResult) {
	fmt.Fprintf(w, "bot: %s\n", result.BotMessage.Content)
	if md := result.BotMessage.Metadata; md != nil {
		if md.MatchedFAQ != nil {
			fmt.Fprintf(w, "  (FAQ: %s)\n", md.MatchedFAQ.Question)
		}
		for _, action := range md.SuggestedActions {
			fmt.Fprintf(w, "  - %s\n", action)
		}
	}
	switch {
	case result.Escalation != nil:
		fmt.Fprintf(w, "  ** escalated to a human agent: %s\n", result.Escalation.Reason)
	case result.EscalationFailed:
		fmt.Fprintln(w, "  ** escalation requested but could not be recorded")
	}
}

func printTimeline(w io.Writer, entries []domain.TimelineEntry) {
	for _, e := range entries {
		ts := e.Timestamp.Local().Format("15:04:05")
		switch {
		case e.Message != nil:
			fmt.Fprintf(w, "[%s] %s: %s\n", ts, e.Message.Sender, e.Message.Content)
		case e.Escalation != nil:
			fmt.Fprintf(w, "[%s] ** escalated: %s\n", ts, e.Escalation.Reason)
		}
	}
}
