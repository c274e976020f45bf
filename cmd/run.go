package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/openhiit/openhiit/internal/audio"
	"github.com/openhiit/openhiit/internal/session"
	"github.com/openhiit/openhiit/internal/settings"
	screenui "github.com/openhiit/openhiit/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interval session",
	Long: `Build a session from the current settings and selected users, then run
it in a full-screen timer. Space pauses, Q stops. The completed session
is recorded for every selected user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(ctx context.Context) error {
	store, err := getStore()
	if err != nil {
		return err
	}

	users, err := store.SelectedUsers(ctx)
	if err != nil {
		return fmt.Errorf("no one to train: %w (add users with `openhiit user add`)", err)
	}

	cfgStore, st, err := getSettings()
	if err != nil {
		return err
	}

	// Settings edits made while a session is on screen apply to the next
	// session, not the running one.
	cfgStore.Watch()
	cancelWatch := cfgStore.Subscribe(func(settings.Settings) {
		logger.Printf("run: settings changed, applies to the next session")
	})
	defer cancelWatch()

	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	sess, err := session.Build(st.SessionConfig(), userIDs)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal screen: %w", err)
	}
	app := tview.NewApplication().SetScreen(screen)

	rt := session.NewRuntime(logger,
		session.WithCuePlayer(cuePlayer(st.BeepEnabled, screen, logger)))
	defer rt.Shutdown()

	// Capture the final summary before the screen goes away.
	var (
		mu      sync.Mutex
		summary *session.Summary
	)
	cancel := rt.Views().Subscribe(func(v session.SessionView) {
		if v.Status == session.StatusFinished && v.Summary != nil {
			mu.Lock()
			summary = v.Summary
			mu.Unlock()
		}
	})
	defer cancel()

	scr := screenui.NewScreen(logger, app, rt)
	if err := rt.Load(sess); err != nil {
		return err
	}
	if err := scr.Run(); err != nil {
		return fmt.Errorf("session screen: %w", err)
	}

	mu.Lock()
	sum := summary
	mu.Unlock()

	if sum == nil || sum.DurationMs == 0 {
		ui.Info("Nothing completed, nothing recorded.")
		return nil
	}

	ui.Success("Exercise time: %s (%d work periods)",
		sum.FormattedDuration, len(sum.CompletedWork))

	// The workout already happened; a failed write must not hide that.
	if err := store.SaveSession(ctx, time.Now(), sum.DurationMs, sum.Users); err != nil {
		ui.Warning("Session could not be recorded: %v", err)
		logger.Printf("run: persisting session: %v", err)
		return nil
	}
	ui.Success("Recorded for %d user(s).", len(sum.Users))
	return nil
}

// cuePlayer picks and preloads the audible cue for a session: the
// terminal screen's bell when beeps are on, a raw BEL to stderr when
// the screen cue cannot be readied, silence when beeps are off or no
// cue can be preloaded.
func cuePlayer(beepEnabled bool, screen tcell.Screen, logger *log.Logger) audio.Player {
	if !beepEnabled {
		return audio.Silent{}
	}

	var p audio.Player = screenui.NewBeeper(screen)
	if err := p.Preload(); err != nil {
		logger.Printf("run: screen cue unavailable, falling back to terminal bell: %v", err)
		p = audio.NewBell(os.Stderr, logger)
		if err := p.Preload(); err != nil {
			logger.Printf("run: no audible cue available: %v", err)
			return audio.Silent{}
		}
	}
	return p
}
