package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/store"
)

var (
	trackCwd      string
	trackExit     int
	trackDuration int64
	trackSession  string
	trackHost     string
)

var trackCmd = &cobra.Command{
	Use:     "track -- <command...>",
	Short:   "Record an executed command",
	GroupID: groupCore,
	Args:    cobra.MinimumNArgs(1),
	Example: `  recall track -- git status
  recall track --exit 1 --duration-ms 230 -- make test`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackCwd, "cwd", "", "Working directory (default: current)")
	trackCmd.Flags().IntVar(&trackExit, "exit", 0, "Exit code of the command")
	trackCmd.Flags().Int64Var(&trackDuration, "duration-ms", 0, "Command duration in milliseconds")
	trackCmd.Flags().StringVar(&trackSession, "session", "", "Session identifier (default: $RECALL_SESSION or a new UUID)")
	trackCmd.Flags().StringVar(&trackHost, "host", "", "Hostname (default: os.Hostname)")
}

func runTrack(cmd *cobra.Command, args []string) error {
	// Hooks run this on every prompt; diagnostics must not pollute the
	// terminal.
	logger := newLogger(true)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	line := strings.TrimSpace(strings.Join(args, " "))
	if line == "" {
		return nil
	}

	cwd := trackCwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	session := trackSession
	if session == "" {
		session = os.Getenv("RECALL_SESSION")
	}
	if session == "" {
		session = uuid.New().String()
	}

	host := trackHost
	if host == "" {
		host, _ = os.Hostname()
	}

	db, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.InsertOne(cmd.Context(), &store.Record{
		Cmd:        line,
		Cwd:        cwd,
		ExitCode:   trackExit,
		DurationMs: trackDuration,
		Session:    session,
		Host:       host,
	})
}
