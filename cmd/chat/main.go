// Command chat runs the booking assistant in a terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/healthylife-gp-assistant/cmd/mainconfig"
	"github.com/wolfman30/healthylife-gp-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/healthylife-gp-assistant/internal/config"
	"github.com/wolfman30/healthylife-gp-assistant/internal/conversation"
	"github.com/wolfman30/healthylife-gp-assistant/internal/tools"
	"github.com/wolfman30/healthylife-gp-assistant/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// Keep stdout for the conversation.
	logger := logging.NewWithWriter(os.Stderr, "warn")

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Deps{
		Logger: logger,
		LoadAWS: func(ctx context.Context) (aws.Config, error) {
			return mainconfig.LoadAWSConfig(ctx, cfg)
		},
	})
	if err != nil {
		log.Fatalf("build assistant: %v", err)
	}
	defer app.Close()

	if err := repl(ctx, app.Assistant, app.Dispatcher, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("chat: %v", err)
	}
}

type chatAssistant interface {
	StartSession(ctx context.Context) (*conversation.Session, error)
	HandleTurn(ctx context.Context, sessionID, text string) (*conversation.TurnResult, error)
}

type appointmentLister interface {
	Appointments(ctx context.Context) ([]tools.AppointmentView, error)
}

// repl reads one patient message per line. "/appointments" prints the booked
// list and "/quit" ends the session.
func repl(ctx context.Context, assistant chatAssistant, lister appointmentLister, in io.Reader, out io.Writer) error {
	session, err := assistant.StartSession(ctx)
	if err != nil {
		return err
	}
	for _, msg := range session.Transcript {
		fmt.Fprintf(out, "assistant> %s\n", msg.Text)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/appointments":
			if err := printAppointments(ctx, lister, out); err != nil {
				return err
			}
			continue
		}

		result, err := assistant.HandleTurn(ctx, session.ID, line)
		if err != nil {
			fmt.Fprintf(out, "error> %v\n", err)
			continue
		}
		fmt.Fprintf(out, "assistant> %s\n", result.Reply.Text)
	}
}

func printAppointments(ctx context.Context, lister appointmentLister, out io.Writer) error {
	views, err := lister.Appointments(ctx)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Fprintln(out, "(no appointments booked)")
		return nil
	}
	for _, v := range views {
		fmt.Fprintf(out, "  %s  %s %s  %-16s %-12s %s\n", v.ID, v.Date, v.StartTime, v.GPName, v.Type, v.PatientName)
	}
	return nil
}
