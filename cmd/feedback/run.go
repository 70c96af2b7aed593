package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/EcstasyEngineer/feedback-demo/internal/link"
	"github.com/EcstasyEngineer/feedback-demo/internal/session"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a reinforcement session against a device",
	Long: `Run a full reinforcement session: prompts are announced, answers are
read from stdin and fuzzy-matched, and every match fires a reinforcement
tick on the connected device. Intensity, delay, and reward durations
follow the configured patterns and session arcs.

Sessions are configured three ways, in order of precedence:
  --share     a base64 share blob (or full share URL) carrying prompts
              and settings
  --settings  a YAML settings file over the defaults
  (neither)   built-in defaults

Examples:
  # Default session against a device found by name
  feedback run --device LVS-Domi38

  # Session from a YAML file with prompts from a text file
  feedback run --device AA:BB:CC:DD:EE:FF --settings session.yaml --prompts prompts.txt

  # Session from a pasted share blob
  feedback run --device "47L121000" --share 'eyJwcm9tcHRzIjpb...'`,
	RunE: runSession,
}

var (
	runDevice         string
	runSettingsPath   string
	runShareBlob      string
	runPromptsPath    string
	runConnectTimeout time.Duration
	runScanTimeout    time.Duration
	runSwapChannels   bool
)

func init() {
	runCmd.Flags().StringVar(&runDevice, "device", "", "Device address or advertised name (required)")
	runCmd.Flags().StringVar(&runSettingsPath, "settings", "", "YAML session settings file")
	runCmd.Flags().StringVar(&runShareBlob, "share", "", "Base64 share blob or share URL")
	runCmd.Flags().StringVar(&runPromptsPath, "prompts", "", "Text file with one prompt per line")
	runCmd.Flags().DurationVar(&runConnectTimeout, "connect-timeout", 30*time.Second, "Connection timeout")
	runCmd.Flags().DurationVar(&runScanTimeout, "scan-timeout", 10*time.Second, "Scan timeout when resolving a device name")
	runCmd.Flags().BoolVar(&runSwapChannels, "swap-channels", false, "Swap e-stim output channels A and B")
	_ = runCmd.MarkFlagRequired("device")
	runCmd.MarkFlagsMutuallyExclusive("settings", "share")
}

func runSession(cmd *cobra.Command, args []string) error {
	settings, prompts, err := loadSessionBundle(runShareBlob, runSettingsPath, runPromptsPath)
	if err != nil {
		return err
	}

	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := newStatusLine("Connecting to "+runDevice, "Connecting", "Ready")
	status.Start()
	defer status.Stop()

	opts := &link.Options{
		ConnectTimeout: runConnectTimeout,
		SwapChannels:   runSwapChannels,
	}
	ad, err := connectTarget(ctx, logger, runDevice, opts, runScanTimeout, status.Callback())
	if err != nil {
		return err
	}
	defer func() { _ = ad.Disconnect() }()
	status.Stop()

	var listener session.Listener
	if settings.PromptsEnabled {
		listener = newStdinListener()
	}

	ctrl, err := session.NewController(session.ControllerOptions{
		Prompts:  prompts,
		Settings: settings,
		Device:   ad,
		Listener: listener,
		Hooks:    consoleHooks(settings),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Connected to %s (%s)\n",
		color.CyanString(ad.Device().Name()), ad.Protocol().ID())
	fmt.Printf("Session: %s, %d prompt(s)\n",
		time.Duration(settings.SessionDurationSeconds)*time.Second, len(prompts))

	if err := ctrl.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("\nSession interrupted after %d reinforcement(s)\n", ctrl.Steps())
		}
		return err
	}

	color.Green("Session complete: %d reinforcement(s)", ctrl.Steps())
	return nil
}

// loadSessionBundle resolves settings and prompts from a share blob, a YAML
// file, or the defaults, with a prompts file overriding either source.
func loadSessionBundle(shareBlob, settingsPath, promptsPath string) (*session.Settings, []string, error) {
	var (
		settings *session.Settings
		prompts  []string
	)

	switch {
	case shareBlob != "":
		share, err := session.DecodeShare(shareBlob)
		if err != nil {
			return nil, nil, err
		}
		settings = share.Settings
		if settings == nil {
			settings = session.DefaultSettings()
		}
		if err := settings.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid share settings: %w", err)
		}
		prompts = share.Prompts
	case settingsPath != "":
		s, err := session.LoadSettingsFile(settingsPath)
		if err != nil {
			return nil, nil, err
		}
		settings = s
	default:
		settings = session.DefaultSettings()
	}

	if promptsPath != "" {
		p, err := loadPrompts(promptsPath)
		if err != nil {
			return nil, nil, err
		}
		prompts = p
	}

	return settings, prompts, nil
}

// loadPrompts reads one prompt per line, skipping blanks and # comments.
func loadPrompts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	return prompts, nil
}

// consoleHooks renders session events for the terminal.
func consoleHooks(settings *session.Settings) session.Hooks {
	var (
		announce = color.New(color.FgCyan, color.Bold)
		good     = color.New(color.FgGreen)
		miss     = color.New(color.FgYellow)
		click    = color.New(color.FgHiMagenta)
	)

	return session.Hooks{
		Announce: func(prompt string) {
			announce.Printf("\nSay: %s\n", prompt)
		},
		Feedback: func(ok bool, transcript string, score float64) {
			if ok {
				good.Printf("%s (%.0f%% match)\n", settings.RewardText, score*100)
			} else {
				miss.Printf("heard %q (%.0f%% match), try again\n", transcript, score*100)
			}
		},
		Clicker: func() {
			click.Println("*click*")
		},
		Reward: func(step int, tick session.Tick) {
			fmt.Printf("step %d: %.0f%% for %.1fs\n",
				step, tick.Intensity*100, tick.Reward.Seconds())
		},
	}
}

// stdinListener reads one utterance per line from stdin. Typed input stands
// in for speech recognition; the matcher treats both the same way.
type stdinListener struct {
	lines       chan string
	interactive bool
}

func newStdinListener() *stdinListener {
	l := &stdinListener{
		lines:       make(chan string),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	go func() {
		defer close(l.lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			l.lines <- sc.Text()
		}
	}()
	return l
}

func (l *stdinListener) Listen(ctx context.Context) (string, error) {
	if l.interactive {
		fmt.Print("> ")
	}
	select {
	case line, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
