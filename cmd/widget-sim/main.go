// Command widget-sim drives a widget session from the terminal.
//
// Usage:
//
//	go run cmd/widget-sim/main.go [-tour tour.yaml]
//
// Configuration comes from the environment (a .env file is honored):
//
//	VOCARIA_TOUR_ID      tour to serve (required)
//	VOCARIA_AGENT_ID     voice agent bound to the tour (optional)
//	VOCARIA_TOKEN        widget bearer token (optional)
//	VOCARIA_BACKEND_URL  widget API root; empty runs fully offline with
//	                     canned replies
//	VOCARIA_LANGUAGE     conversation language (default es)
//	VOCARIA_GREETING     greeting appended on open
//
// Plain input is sent as a text message. Commands:
//
//	/rooms           list the rooms in the tour fixture
//	/room <name>     simulate moving to a room
//	/voice           start voice mode
//	/stop            stop voice mode
//	/lead <email> [phone]
//	/retry           retry a failed lead submission
//	/dismiss         dismiss the lead form
//	/state           print the session snapshot
//	/quit            exit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Juanisegura2025/vocaria-widget/internal/dotenv"
	"github.com/Juanisegura2025/vocaria-widget/pkg/core/types"
	"github.com/Juanisegura2025/vocaria-widget/pkg/leads"
	vocaria "github.com/Juanisegura2025/vocaria-widget/sdk"
)

type config struct {
	TourID     string `env:"VOCARIA_TOUR_ID"`
	AgentID    string `env:"VOCARIA_AGENT_ID"`
	Token      string `env:"VOCARIA_TOKEN"`
	BackendURL string `env:"VOCARIA_BACKEND_URL"`
	VoiceURL   string `env:"VOCARIA_VOICE_URL"`
	Language   string `env:"VOCARIA_LANGUAGE" envDefault:"es"`
	Greeting   string `env:"VOCARIA_GREETING"`
	LogLevel   string `env:"VOCARIA_LOG_LEVEL" envDefault:"warn"`
}

// tourFixture is the optional YAML room list used to simulate navigation.
type tourFixture struct {
	Name  string `yaml:"name"`
	Rooms []struct {
		Name string   `yaml:"name"`
		Area *float64 `yaml:"area_m2"`
	} `yaml:"rooms"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "widget-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := dotenv.LoadFile(".env"); err != nil {
		return err
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if cfg.TourID == "" {
		return fmt.Errorf("VOCARIA_TOUR_ID is required")
	}

	tourPath := "tour.yaml"
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-tour", "--tour":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a path", args[i])
			}
			i++
			tourPath = args[i]
		default:
			return fmt.Errorf("unknown argument %q", args[i])
		}
	}

	fixture, err := loadTour(tourPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	client, err := vocaria.New(vocaria.Config{
		TourID:  cfg.TourID,
		AgentID: cfg.AgentID,
		Token:   cfg.Token,
	},
		vocaria.WithLanguage(cfg.Language),
		vocaria.WithGreeting(cfg.Greeting),
		vocaria.WithBackendURL(cfg.BackendURL),
		vocaria.WithVoiceURL(cfg.VoiceURL),
		vocaria.WithLogger(logger),
		vocaria.OnError(func(err error) {
			fmt.Printf("  [error] %v\n", err)
		}),
		vocaria.OnLeadCapture(func(rec leads.Record) {
			fmt.Printf("  [lead captured] id=%s email=%s\n", rec.ID, rec.Email)
		}),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	session := client.Mount()
	session.OpenWidget()
	printTranscriptTail(session, 0)

	fmt.Printf("tour %s ready (%d rooms). Type a message or /help.\n",
		cfg.TourID, len(fixture.Rooms))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := command(session, fixture, line); quit {
				break
			}
			continue
		}

		before := len(session.Transcript())
		if err := session.SendTextMessage(context.Background(), line); err != nil {
			fmt.Printf("  [error] %v\n", err)
			continue
		}
		printTranscriptTail(session, before)
		if session.LeadFormVisible() {
			fmt.Println("  [lead form shown] use /lead <email> [phone] or /dismiss")
		}
	}
	return scanner.Err()
}

func command(session *vocaria.Session, fixture tourFixture, line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Println("  /rooms /room <name> /voice /stop /lead <email> [phone] /retry /dismiss /state /quit")
	case "/rooms":
		for _, r := range fixture.Rooms {
			if r.Area != nil {
				fmt.Printf("  %s (%.1f m²)\n", r.Name, *r.Area)
			} else {
				fmt.Printf("  %s\n", r.Name)
			}
		}
	case "/room":
		if len(fields) < 2 {
			fmt.Println("  usage: /room <name>")
			break
		}
		name := strings.Join(fields[1:], " ")
		rc := types.RoomContext{Name: name}
		for _, r := range fixture.Rooms {
			if strings.EqualFold(r.Name, name) {
				rc.Name = r.Name
				rc.AreaSquareMeters = r.Area
				break
			}
		}
		session.UpdateRoom(rc)
		fmt.Printf("  moved to %s\n", rc.Name)
	case "/voice":
		if err := session.StartVoice(context.Background()); err != nil {
			fmt.Printf("  [error] %v\n", err)
			break
		}
		fmt.Println("  voice mode on")
	case "/stop":
		session.StopVoice()
		fmt.Println("  voice mode off")
	case "/lead":
		if len(fields) < 2 {
			fmt.Println("  usage: /lead <email> [phone]")
			break
		}
		draft := types.LeadDraft{Email: fields[1]}
		if len(fields) > 2 {
			draft.Phone = fields[2]
		}
		if err := session.SubmitLead(context.Background(), draft); err != nil {
			fmt.Printf("  [error] %v\n", err)
		}
	case "/retry":
		session.RetryLead()
	case "/dismiss":
		session.DismissLeadForm()
	case "/state":
		snap := session.Snapshot()
		room := "-"
		if snap.ActiveRoom != nil {
			room = snap.ActiveRoom.Name
		}
		fmt.Printf("  mode=%s voice=%s room=%s messages=%d leadForm=%v\n",
			snap.Mode, snap.VoiceState, room, len(snap.Transcript), snap.LeadFormVisible)
	default:
		fmt.Printf("  unknown command %s\n", fields[0])
	}
	return false
}

func printTranscriptTail(session *vocaria.Session, from int) {
	transcript := session.Transcript()
	for _, m := range transcript[min(from, len(transcript)):] {
		prefix := "visitor"
		if m.Author == types.AuthorAgent {
			prefix = "agent"
		}
		fmt.Printf("  %s: %s\n", prefix, m.Content)
	}
}

func loadTour(path string) (tourFixture, error) {
	var fixture tourFixture
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fixture, nil
		}
		return fixture, fmt.Errorf("read tour fixture %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fixture, fmt.Errorf("parse tour fixture %q: %w", path, err)
	}
	return fixture, nil
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
