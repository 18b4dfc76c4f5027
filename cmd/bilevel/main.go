package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"gioui.org/app"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/esimov/bilevel"
	"github.com/esimov/bilevel/gui"
	"github.com/esimov/bilevel/preview"
	"github.com/esimov/bilevel/utils"
)

const helpBanner = `
┌┐ ┬┬  ┌─┐┬  ┬┌─┐┬
├┴┐││  ├┤ └┐┌┘├┤ │
└─┘┴┴─┘└─┘ └┘ └─┘┴─┘

Grayscale conversion and binarization of raster images.
    Version: %s

`

// systemViewer selects the default image viewer of the platform.
const systemViewer = "system"

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bilevel [flags] [source]",
	Short: "Convert an image to grayscale and threshold it into black and white",
	Long: fmt.Sprintf(helpBanner, Version) +
		`The source image (a file path, an URL or "-" for stdin) is converted to
grayscale using the BT.601 luma weights, then every pixel brighter than the
threshold becomes white and every other pixel black.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(viper.GetViper())
		if len(args) > 0 {
			cfg.Source = args[0]
		}
		if cfg.Source == "" {
			return errors.New("please provide a source image")
		}
		if cfg.Output == "" && cfg.Gray == "" && !cfg.Preview {
			return errors.New("nothing to do: provide an --out or --gray destination, or use --preview")
		}
		return run(cfg)
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bilevel.yaml or ~/.config/bilevel/bilevel.yaml)")

	flags := rootCmd.Flags()
	flags.String("in", "", "Source image: file path, URL or - for stdin")
	flags.String("out", "", "Destination of the binary image, - for stdout")
	flags.String("gray", "", "Destination of the grayscale image, - for stdout")
	flags.Int("threshold", bilevel.DefaultThreshold, "Pixels above the threshold become white")
	flags.Int("workers", 1, "Number of row bands converted concurrently")
	flags.Bool("preview", false, "Show the produced images in a preview window")
	flags.String("viewer", "", `External image viewer command used by --preview instead of the window, "system" for the platform default`)

	for _, name := range []string{"in", "out", "gray", "threshold", "workers", "preview", "viewer"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			log.Fatalf("could not bind the %s flag: %v", name, err)
		}
	}
}

func main() {
	log.SetFlags(0)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// run converts the image described by cfg. In preview mode every produced image
// is also opened in the image viewer.
func run(cfg Config) error {
	proc := &bilevel.Processor{
		Threshold: cfg.Threshold,
		Workers:   cfg.Workers,
	}
	op := &bilevel.Ops{
		Src:      cfg.Source,
		Dst:      cfg.Output,
		Gray:     cfg.Gray,
		PipeName: pipeName,
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		proc.Spinner = utils.NewSpinner(fmt.Sprintf("%s %s",
			utils.DecorateText("◐ BILEVEL", utils.StatusMessage),
			utils.DecorateText("⇢ converting image...", utils.DefaultMessage),
		), time.Millisecond*80, true)
		restoreCursorOnInterrupt(proc.Spinner)
	}

	if !cfg.Preview {
		return execute(proc, op)
	}
	if cfg.Viewer == "" {
		return showWindow(proc, op)
	}

	viewer := preview.New("bilevel")
	if cfg.Viewer != systemViewer {
		viewer.Command = strings.Fields(cfg.Viewer)
	}
	proc.Sink = viewer

	err := execute(proc, op)
	if cerr := viewer.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("image viewer: %w", cerr)
	}
	return err
}

// showWindow converts the image while showing the stages in a Gio window.
// It never returns: the process exits once the window is closed.
func showWindow(proc *bilevel.Processor, op *bilevel.Ops) error {
	win := gui.New("bilevel")
	proc.Sink = win

	var done atomic.Bool
	go func() {
		if err := execute(proc, op); err != nil {
			printError(err)
			os.Exit(1)
		}
		done.Store(true)
	}()

	go func() {
		err := win.Run()
		if proc.Spinner != nil {
			proc.Spinner.RestoreCursor()
		}
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if !done.Load() {
			log.Println(utils.DecorateText("\nthe conversion was aborted by closing the preview window", utils.ErrorMessage))
			os.Exit(1)
		}
		os.Exit(0)
	}()

	app.Main()
	return nil
}

// execute runs the conversion and reports the outcome on stderr.
func execute(proc *bilevel.Processor, op *bilevel.Ops) error {
	now := time.Now()

	res, err := proc.Execute(op)
	if err != nil {
		return err
	}

	for _, dst := range []string{op.Gray, op.Dst} {
		if dst != "" && dst != op.PipeName {
			fmt.Fprintf(os.Stderr, "\nThe image has been saved as: %s\n",
				utils.DecorateText(filepath.Base(dst), utils.SuccessMessage),
			)
		}
	}
	fmt.Fprintf(os.Stderr, "Size: %dx%d, threshold: %d, black: %d, white: %d\n",
		res.Stats.Width, res.Stats.Height, proc.Threshold, res.Stats.Black, res.Stats.White)
	fmt.Fprintf(os.Stderr, "Execution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))

	return nil
}

// restoreCursorOnInterrupt captures the CTRL-C signal and restores back the cursor visibility.
func restoreCursorOnInterrupt(s *utils.Spinner) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		s.RestoreCursor()
		os.Exit(1)
	}()
}

// printError displays the reason of a failed conversion.
func printError(err error) {
	log.Printf("%s%s",
		utils.DecorateText("\nError converting the image: ", utils.ErrorMessage),
		utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err), utils.DefaultMessage),
	)
}
