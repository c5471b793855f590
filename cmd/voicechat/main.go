// Command voicechat is a hands-free terminal client: press Enter to start
// talking, and the conversation continues until a turn fails or you quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/code-with-happy/ai-voice-agent/internal/client"
	"github.com/code-with-happy/ai-voice-agent/internal/config"
	"github.com/code-with-happy/ai-voice-agent/internal/playback"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "voice agent base URL")
	session := flag.String("session", "", "session id, generated when empty")
	recordCmd := flag.String("record", "sox -q -d -t wav -r 16000 -c 1 -b 16 - silence 1 0.1 1% 1 1.2 1%", "command writing one WAV utterance to stdout")
	playCmd := flag.String("play", "ffplay -nodisp -autoexit -loglevel quiet {url}", "command playing {url} and exiting when done")
	openCmd := flag.String("open", defaultOpener(), "command opening {url} when playback fails")
	speakCmd := flag.String("speak", defaultSpeaker(), "command speaking {text} locally")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	config.SetupLogging(config.LogConfig{Level: *logLevel, Format: "text"})

	sessionID := *session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	agentClient, err := client.New(*server, nil)
	if err != nil {
		slog.Error("invalid server url", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := playback.New(
		playback.CommandRecorder{Args: strings.Fields(*recordCmd), Format: "wav"},
		agentClient,
		playback.CommandPlayer{Args: strings.Fields(*playCmd)},
		playback.CommandOpener{Args: strings.Fields(*openCmd)},
		playback.CommandSpeaker{Args: strings.Fields(*speakCmd)},
		playback.Options{
			SessionID: sessionID,
			OnStateChange: func(s playback.State) {
				switch s {
				case playback.Idle:
					fmt.Println("[idle] press Enter to talk, Ctrl+C to quit")
				default:
					fmt.Printf("[%s]\n", s)
				}
			},
			OnAdvance: func(a playback.Advance) {
				if a.Err != nil {
					slog.Warn("segment skipped", "index", a.Index, "error", a.Err)
				}
			},
		},
	)

	fmt.Printf("session %s on %s\n", sessionID, *server)
	fmt.Println("[idle] press Enter to talk, Ctrl+C to quit")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if !controller.Start() {
				fmt.Printf("[%s] already running\n", controller.State())
			}
		}
		stop()
	}()

	if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("conversation loop stopped", "error", err)
		os.Exit(1)
	}

	if history, err := agentClient.History(context.Background(), sessionID); err == nil {
		slog.Info("session ended", "session", sessionID, "messages", len(history))
	}
}

func defaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open {url}"
	case "windows":
		return "rundll32 url.dll,FileProtocolHandler {url}"
	default:
		return "xdg-open {url}"
	}
}

func defaultSpeaker() string {
	if runtime.GOOS == "darwin" {
		return "say {text}"
	}
	return "espeak {text}"
}
