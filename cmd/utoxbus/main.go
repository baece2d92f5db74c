package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/opd-ai/utox"
	"github.com/opd-ai/utox/bus"
	"github.com/opd-ai/utox/config"
	utoxtest "github.com/opd-ai/utox/testing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		logJSON  bool
	)

	rootCmd := &cobra.Command{
		Use:     "utoxbus",
		Short:   "Drive the uTox worker bus",
		Long:    "utoxbus runs the four backend workers of a uTox client on a loopback network and manages the settings file.",
		Version: utox.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			logrus.SetLevel(level)
			if logJSON {
				logrus.SetFormatter(&logrus.JSONFormatter{})
			} else {
				logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")

	var callDuration time.Duration
	var timeout time.Duration
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run two loopback clients that befriend, chat and call",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				select {
				case <-sigChan:
					cancel()
				case <-ctx.Done():
				}
			}()

			return runDemo(ctx, newPrinter(cmd.OutOrStdout()), callDuration)
		},
	}
	runCmd.Flags().DurationVar(&callDuration, "call", 2*time.Second, "How long the call lasts")
	runCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Abort the demo after this long")

	var dir string
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or write the settings file",
	}
	settingsCmd.PersistentFlags().StringVarP(&dir, "dir", "d", defaultDir(), "Settings directory")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewStore(dir)
			settings, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			printSettings(cmd.OutOrStdout(), store.Path(), settings)
			return nil
		},
	}

	var fps uint32
	var mailboxMode string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Normalize and write the settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewStore(dir)
			settings, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			if cmd.Flags().Changed("video-fps") {
				settings.AV.VideoFPS = fps
			}
			if cmd.Flags().Changed("mailbox") {
				settings.Advanced.MailboxMode = mailboxMode
			}
			if err := store.Save(settings); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", store.Path())
			return nil
		},
	}
	saveCmd.Flags().Uint32Var(&fps, "video-fps", config.DefaultVideoFPS, "Video capture rate")
	saveCmd.Flags().StringVar(&mailboxMode, "mailbox", "queue", "Mailbox mode (queue or slot)")

	settingsCmd.AddCommand(showCmd, saveCmd)
	rootCmd.AddCommand(runCmd, settingsCmd)
	return rootCmd
}

// printer serialises the output of the two event goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer { return &printer{w: w} }

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "utox")
}

func newLoopbackClient(network *utoxtest.LoopbackNetwork) (*utox.Client, error) {
	engine, err := utoxtest.NewSimulatedEngine(network)
	if err != nil {
		return nil, err
	}
	options := utox.NewOptions()
	options.Engine = engine
	options.Media = engine
	options.AudioDevices = utoxtest.NewSimulatedAudio()
	options.VideoDevices = utoxtest.NewSimulatedCamera()
	options.VideoWidth, options.VideoHeight = 160, 120
	return utox.New(options)
}

// runDemo lets alice befriend bob, send a message and call him. Bob
// accepts everything. Every UI event of both is printed.
func runDemo(ctx context.Context, out *printer, callDuration time.Duration) error {
	network := utoxtest.NewLoopbackNetwork()
	alice, err := newLoopbackClient(network)
	if err != nil {
		return fmt.Errorf("failed to create alice: %w", err)
	}
	bob, err := newLoopbackClient(network)
	if err != nil {
		return fmt.Errorf("failed to create bob: %w", err)
	}

	if err := alice.Start(ctx); err != nil {
		return err
	}
	if err := bob.Start(ctx); err != nil {
		_ = alice.Kill()
		return err
	}

	done := make(chan struct{})
	var once sync.Once
	evCtx, stopEvents := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = alice.RunEvents(evCtx, func(msg bus.Message[bus.UIEvent]) {
			out.event("alice", msg)
			switch msg.Kind {
			case bus.UIFriendOnline:
				if msg.Param2 == 1 {
					alice.PostToNetwork(bus.ToxSendMessage, msg.Param1, 0, bus.Text{Value: "Hello from the loopback network"})
					alice.PostToNetwork(bus.ToxCallSend, msg.Param1, 0, nil)
				}
			case bus.UIFriendCallAudioConnected:
				friend := msg.Param1
				time.AfterFunc(callDuration, func() {
					alice.PostToNetwork(bus.ToxCallDisconnect, friend, 0, nil)
				})
			case bus.UIFriendAVDisconnect:
				once.Do(func() { close(done) })
			}
		})
	}()
	go func() {
		defer wg.Done()
		_ = bob.RunEvents(evCtx, func(msg bus.Message[bus.UIEvent]) {
			out.event("bob", msg)
			switch msg.Kind {
			case bus.UIFriendRequest:
				req := msg.Payload.(bus.FriendRequestInfo)
				bob.PostToNetwork(bus.ToxFriendAccept, 0, 0, bus.PublicKey{Key: req.PublicKey})
			case bus.UIFriendAVIncoming:
				bob.PostToNetwork(bus.ToxCallAnswer, msg.Param1, 0, nil)
			}
		})
	}()

	alice.PostToNetwork(bus.ToxFriendNew, 0, 0, bus.FriendAddress{ID: bob.Address(), Message: "Hi Bob, it's Alice"})

	var result error
	select {
	case <-done:
	case <-ctx.Done():
		result = fmt.Errorf("demo aborted: %w", ctx.Err())
	}

	if err := alice.Kill(); err != nil && result == nil {
		result = err
	}
	if err := bob.Kill(); err != nil && result == nil {
		result = err
	}
	// give the UI loops a moment to print TOX_DONE
	time.Sleep(50 * time.Millisecond)
	stopEvents()
	wg.Wait()

	out.stats("alice", alice.Stats())
	out.stats("bob", bob.Stats())
	return result
}

func (p *printer) event(who string, msg bus.Message[bus.UIEvent]) {
	if msg.Kind == bus.UIFriendVideoFrame || msg.Kind == bus.UIPreviewFrame {
		return
	}
	p.printf("%-5s %-30s p1=%-3d p2=%-3d %s\n", who, msg.Kind, msg.Param1, msg.Param2, describe(msg.Payload))
}

func describe(p bus.Payload) string {
	switch v := p.(type) {
	case nil:
		return ""
	case bus.Text:
		return fmt.Sprintf("%q", v.Value)
	case bus.FriendRequestInfo:
		return fmt.Sprintf("from %X: %q", v.PublicKey[:4], v.Message)
	case bus.PublicKey:
		return fmt.Sprintf("%X", v.Key[:4])
	case bus.DeviceInfo:
		return fmt.Sprintf("#%d %s", v.Index, v.Name)
	case *bus.VideoFrame:
		return fmt.Sprintf("%dx%d", v.Width, v.Height)
	default:
		return fmt.Sprintf("%T", p)
	}
}

func (p *printer) stats(who string, stats map[bus.Destination]utox.WorkerStats) {
	dests := make([]bus.Destination, 0, len(stats))
	for d := range stats {
		dests = append(dests, d)
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i] < dests[j] })

	p.printf("\n%s:\n", who)
	for _, d := range dests {
		s := stats[d]
		p.printf("  %-20s posted=%-5d taken=%-5d dropped=%-3d overwritten=%-3d refused=%-3d handled=%-5d failed=%d\n",
			d, s.Mailbox.Posted, s.Mailbox.Taken, s.Mailbox.Dropped, s.Mailbox.Overwritten, s.Mailbox.Refused, s.Handled, s.Failed)
	}
}

func printSettings(w io.Writer, path string, s *config.Settings) {
	fmt.Fprintf(w, "# %s\n", path)
	fmt.Fprintf(w, "[general]\n%+v\n\n", s.General)
	fmt.Fprintf(w, "[interface]\n%+v\n\n", s.Interface)
	fmt.Fprintf(w, "[av]\n%+v\n\n", s.AV)
	fmt.Fprintf(w, "[notifications]\n%+v\n\n", s.Notifications)
	fmt.Fprintf(w, "[advanced]\n%+v\n", s.Advanced)
}
