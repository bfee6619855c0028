package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eventkernel/bus"
	"eventkernel/errcode"
	"eventkernel/kernel"
	"eventkernel/kernel/halt"
	"eventkernel/platform/host"
	"eventkernel/services/config"
	"eventkernel/services/heartbeat"
	"eventkernel/types"
)

var (
	runDuration time.Duration
	runNoStdin  bool
	runListFS   bool
	runFSRoot   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the kernel and run the event loop",
	Long: `Boots the host platform and runs the kernel event loop until interrupted.
Text typed on stdin is converted to keyboard scan codes and delivered on IRQ1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runFSRoot != "" {
			cfg.Filesystem.Root = runFSRoot
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if runDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runDuration)
			defer cancel()
		}
		opts := runOptions{out: cmd.OutOrStdout(), listFS: runListFS}
		if !runNoStdin {
			opts.in = cmd.InOrStdin()
		}
		return run(ctx, cfg, logger, opts)
	},
}

func init() {
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	runCmd.Flags().BoolVar(&runNoStdin, "no-stdin", false, "Do not feed stdin to the keyboard")
	runCmd.Flags().BoolVar(&runListFS, "list-fs", false, "List every filesystem device once the kernel is idle")
	runCmd.Flags().StringVar(&runFSRoot, "fs-root", "", "Host directory to mount as the boot filesystem")
}

type runOptions struct {
	in     io.Reader // feeds the keyboard when non-nil
	out    io.Writer
	listFS bool
}

// run boots the host kernel and blocks until ctx is done or the kernel
// halts.
func run(ctx context.Context, cfg config.Config, log *zap.Logger, opts runOptions) error {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A halted host kernel stops the process instead of spinning forever.
	var halted atomic.Bool
	h := halt.New(log, func() {
		halted.Store(true)
		cancel()
	})

	b := bus.NewBus(32)
	if err := config.NewConfigService(cfg).Start(ctx, b.NewConnection("config")); err != nil {
		return err
	}
	hb := heartbeat.New(log)
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		return err
	}

	p := host.New(cfg, log, h)
	k := kernel.New[host.DeviceID, kernel.Device](p,
		kernel.WithLogger(log),
		kernel.WithTelemetry(b.NewConnection("kernel")),
		kernel.WithHalter(h),
	)

	g, gctx := errgroup.WithContext(ctx)
	out := opts.out
	if out == nil {
		out = io.Discard
	}
	// Input and listings wait for the first idle so every boot device is
	// registered.
	watch := b.NewConnection("cli")
	defer watch.Disconnect()
	if opts.in != nil {
		chunks := readChunks(opts.in)
		idle := watch.Subscribe(kernel.TopicState())
		g.Go(func() error {
			if !waitIdle(gctx, idle) {
				return nil
			}
			return feedKeyboard(gctx, p, chunks, log)
		})
	}
	if opts.listFS {
		idle := watch.Subscribe(kernel.TopicState())
		g.Go(func() error {
			if waitIdle(gctx, idle) {
				printFilesystems(k, out)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		return k.Start(gctx)
	})

	err := g.Wait()
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	<-hb.Done()

	st := p.Allocator().Stats()
	fmt.Fprintf(out, "ticks: %d, devices: %d, event overflows: %d, memory: %d/%d bytes free\n",
		k.Ticks(), k.Registry().Len(), p.QueueOverflows(), st.Free, st.Total)

	if halted.Load() {
		return errcode.New(errcode.Error, "kernel", "system halted")
	}
	return err
}

// readChunks reads in on its own goroutine. A blocked read cannot be
// interrupted, so the goroutine lives until in is closed.
func readChunks(in io.Reader) <-chan string {
	ch := make(chan string, 16)
	go func() {
		defer close(ch)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				ch <- line
			}
			if err != nil {
				return
			}
		}
	}()
	return ch
}

func feedKeyboard(ctx context.Context, p *host.Platform, chunks <-chan string, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-chunks:
			if !ok {
				return nil
			}
			for _, r := range s {
				if !p.TypeRune(r) {
					log.Debug("no key for rune", zap.String("rune", string(r)))
				}
			}
		}
	}
}

// waitIdle blocks until the kernel reports idle. It returns false if ctx
// ends first.
func waitIdle(ctx context.Context, sub *bus.Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case m, ok := <-sub.Channel():
			if !ok {
				return false
			}
			if st, _ := m.Payload.(types.KernelState); st.Level == types.LevelIdle {
				return true
			}
		}
	}
}

func printFilesystems(k *kernel.Kernel[host.DeviceID, kernel.Device], out io.Writer) {
	for id, names := range k.ListFilesystems() {
		fmt.Fprintf(out, "%s:\n", id)
		for _, n := range names {
			fmt.Fprintf(out, "  %s\n", n)
		}
	}
}
