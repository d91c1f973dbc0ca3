package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/beanboi7/chyp8/emu/audio"
	"github.com/beanboi7/chyp8/emu/clock"
	"github.com/beanboi7/chyp8/emu/cpu"
	"github.com/beanboi7/chyp8/emu/screen"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var startCmd = &cobra.Command{
	Use:   "start `path/ROM`",
	Short: "load and start the Emulator",
	Args:  cobra.ExactArgs(1),
	RunE:  Start,
}

// settings is the configuration surface of the start command.
type settings struct {
	Scale   int
	Clock   int
	Backend string
	Mute    bool
	Beep    string
	Seed    int64
}

func loadSettings() (settings, error) {
	s := settings{
		Scale:   viper.GetInt("scale"),
		Clock:   viper.GetInt("clock"),
		Backend: viper.GetString("backend"),
		Mute:    viper.GetBool("mute"),
		Beep:    viper.GetString("beep"),
		Seed:    viper.GetInt64("seed"),
	}
	if s.Scale <= 0 {
		return s, fmt.Errorf("scale must be a positive integer, got %d", s.Scale)
	}
	if s.Clock <= 0 || s.Clock > clock.MaxSpeed {
		return s, fmt.Errorf("clock must be between 1 and %d, got %d", clock.MaxSpeed, s.Clock)
	}
	if s.Backend == "" {
		s.Backend = screen.Default()
	}
	return s, nil
}

// chyp8 start 'path/to/ROM' -s 2 -c 700
func Start(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	s, err := loadSettings()
	if err != nil {
		return err
	}

	var opts []cpu.Option
	if s.Seed != 0 {
		opts = append(opts, cpu.WithSeed(s.Seed))
	}
	emu := cpu.New(opts...)
	if err := loadROM(logger, emu, args[0]); err != nil {
		return err
	}

	// cancelled on SIGINT, SIGQUIT and SIGTERM
	ctx := app.Context()

	screen.Main(s.Backend, func() {
		err = run(ctx, logger, emu, s)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run creates the backend and the buzzer and drives the machine until it
// quits or fails.
func run(ctx context.Context, logger *log.Logger, emu *cpu.EMU, s settings) error {
	backend, err := screen.New(s.Backend, logger, screen.Options{Scale: s.Scale})
	if err != nil {
		return err
	}

	cfg := clock.Config{
		Speed:   s.Clock,
		Input:   backend,
		Display: backend,
	}
	if !s.Mute {
		beeper, err := audio.New(logger, s.Beep)
		if err != nil {
			logger.Warn("Sound disabled", log.Err(err))
		} else {
			defer beeper.Close()
			cfg.Sound = beeper
		}
	}

	sched, err := clock.New(logger, emu, cfg)
	if err != nil {
		return err
	}

	logger.Info("Starting emulator",
		log.String("backend", s.Backend),
		log.Int("clock", s.Clock),
		log.Int("scale", s.Scale))

	return backend.Run(ctx, sched)
}

// loadROM loads the program and logs what it starts with.
func loadROM(logger *log.Logger, emu *cpu.EMU, path string) error {
	n, truncated, err := emu.LoadROM(path)
	if err != nil {
		return err
	}

	logger.Info("ROM loaded", log.String("file", path), log.Int("bytes", n))
	if truncated {
		logger.Warn("ROM truncated to fit memory", log.Int("bytes", n))
	}

	const opcodesToLog = 8
	mem := emu.Memory()
	for i := 0; i < opcodesToLog && i*2+1 < n; i++ {
		addr := uint16(cpu.ProgramStart + i*2)
		op := cpu.Instruction(mem.Word(addr))
		logger.Debug("Opcode",
			log.Hex("address", addr),
			log.Hex("opcode", uint16(op)),
			log.String("instruction", cpu.Mnemonic(op)))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(startCmd)

	flags := startCmd.Flags()
	flags.IntP("scale", "s", 1, "window scale factor")
	flags.IntP("clock", "c", clock.DefaultSpeed, "instructions executed per second")
	flags.StringP("backend", "b", "", fmt.Sprintf("display backend %v (default %s)", screen.Names(), screen.Default()))
	flags.Bool("mute", false, "disable the buzzer")
	flags.String("beep", "", "mp3 file to play as the buzzer instead of a square wave")
	flags.Int64("seed", 0, "random seed, 0 seeds from the current time")

	for _, name := range []string{"scale", "clock", "backend", "mute", "beep", "seed"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}
}
