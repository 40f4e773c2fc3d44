// Package config loads the YAML configuration shared by the simulator, the monitor and the
// calibration study.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/controller"
	"github.com/calvinmclean/autotune/display"
	"github.com/calvinmclean/autotune/input"
	"github.com/calvinmclean/autotune/relay"
	"github.com/calvinmclean/autotune/sampler"
	"github.com/calvinmclean/autotune/search"
	"github.com/calvinmclean/autotune/sim"
)

// Config represents the main application configuration
type Config struct {
	Settings   Settings         `yaml:"settings"`
	Relay      RelayConfig      `yaml:"relay"`
	Sampler    SamplerConfig    `yaml:"sampler"`
	Search     SearchConfig     `yaml:"search"`
	Controller ControllerConfig `yaml:"controller"`
	Buttons    ButtonsConfig    `yaml:"buttons"`
	Ladder     LadderConfig     `yaml:"ladder"`
	Display    DisplayConfig    `yaml:"display"`
	Serial     SerialConfig     `yaml:"serial"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	TWChart    TWChartConfig    `yaml:"twchart"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// RelayConfig describes the relay banks
type RelayConfig struct {
	LBits      int      `yaml:"lBits"`
	CBits      int      `yaml:"cBits"`
	LWired     uint16   `yaml:"lWired"`
	CWired     uint16   `yaml:"cWired"`
	Settle     Duration `yaml:"settle"`
	Changeover bool     `yaml:"changeover"`
}

// SamplerConfig controls averaging of bridge readings
type SamplerConfig struct {
	AverageCount int `yaml:"averageCount"`
}

// SearchConfig sizes the fine search
type SearchConfig struct {
	WindowWidth       int  `yaml:"windowWidth"`
	WindowHeight      int  `yaml:"windowHeight"`
	FinePasses        int  `yaml:"finePasses"`
	TryBothTopologies bool `yaml:"tryBothTopologies"`
}

// ControllerConfig has the thresholds and timing of a tuning cycle. SWR values are ratios.
type ControllerConfig struct {
	OKSWR            float64  `yaml:"okSWR"`
	TXThreshold      uint16   `yaml:"txThreshold"`
	NoSignalRetries  int      `yaml:"noSignalRetries"`
	NoSignalDelay    Duration `yaml:"noSignalDelay"`
	Timeout          Duration `yaml:"timeout"`
	GainHighBelow    uint16   `yaml:"gainHighBelow"`
	GainLowAbove     uint16   `yaml:"gainLowAbove"`
	AutoTune         bool     `yaml:"autoTune"`
	AutoTuneAboveSWR float64  `yaml:"autoTuneAboveSWR"`
	AutoTuneInterval Duration `yaml:"autoTuneInterval"`
	PollInterval     Duration `yaml:"pollInterval"`
	ManualLongStep   int      `yaml:"manualLongStep"`
}

// ButtonsConfig is the timing of the digital tune button
type ButtonsConfig struct {
	Debounce  Duration `yaml:"debounce"`
	LongPress Duration `yaml:"longPress"`
	ActiveLow bool     `yaml:"activeLow"`
}

// LadderConfig describes the analog step buttons
type LadderConfig struct {
	R1        float64  `yaml:"r1"`
	R2        float64  `yaml:"r2"`
	Buttons   int      `yaml:"buttons"`
	ADCMax    uint16   `yaml:"adcMax"`
	Debounce  Duration `yaml:"debounce"`
	LongPress Duration `yaml:"longPress"`
}

// DisplayConfig is the size of the character LCD
type DisplayConfig struct {
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`
}

// SerialConfig is the console link to the tuner
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baudRate"`
}

// SimulatorConfig describes the simulated antenna and bridge
type SimulatorConfig struct {
	Drive          uint16   `yaml:"drive"`
	HighGainFactor float64  `yaml:"highGainFactor"`
	Noise          float64  `yaml:"noise"`
	Seed           int64    `yaml:"seed"`
	TargetL        uint16   `yaml:"targetL"`
	TargetC        uint16   `yaml:"targetC"`
	TargetHighZ    bool     `yaml:"targetHighZ"`
	Floor          float64  `yaml:"floor"`
	Slope          float64  `yaml:"slope"`
	Roughness      float64  `yaml:"roughness"`
	Settle         Duration `yaml:"settle"`
}

// TWChartConfig enables exporting tuning cycles to a TWChart server
type TWChartConfig struct {
	Address string `yaml:"address"`
}

// Default reproduces the constants of the tuner firmware
func Default() *Config {
	relayCfg := relay.DefaultConfig()
	searchCfg := search.DefaultConfig()
	ctrl := controller.DefaultConfig()
	buttons := input.DefaultButtonConfig()
	ladder := input.DefaultLadderConfig()
	simCfg := sim.DefaultConfig()

	return &Config{
		Settings: Settings{LogLevel: "info"},
		Relay: RelayConfig{
			LBits:      relayCfg.LBits,
			CBits:      relayCfg.CBits,
			LWired:     relayCfg.LWired,
			CWired:     relayCfg.CWired,
			Settle:     Duration(relayCfg.Settle),
			Changeover: true,
		},
		Sampler: SamplerConfig{AverageCount: sampler.DefaultConfig().AverageCount},
		Search: SearchConfig{
			WindowWidth:       searchCfg.WindowWidth,
			WindowHeight:      searchCfg.WindowHeight,
			FinePasses:        searchCfg.FinePasses,
			TryBothTopologies: searchCfg.TryBothTopologies,
		},
		Controller: ControllerConfig{
			OKSWR:            ctrl.OKScore.SWR(),
			TXThreshold:      ctrl.TXThreshold,
			NoSignalRetries:  ctrl.NoSignalRetries,
			NoSignalDelay:    Duration(ctrl.NoSignalDelay),
			Timeout:          Duration(ctrl.Timeout),
			GainHighBelow:    ctrl.GainHighBelow,
			GainLowAbove:     ctrl.GainLowAbove,
			AutoTune:         ctrl.AutoTune,
			AutoTuneAboveSWR: ctrl.AutoTuneAbove.SWR(),
			AutoTuneInterval: Duration(ctrl.AutoTuneInterval),
			PollInterval:     Duration(ctrl.PollInterval),
			ManualLongStep:   ctrl.ManualLongStep,
		},
		Buttons: ButtonsConfig{
			Debounce:  Duration(buttons.Debounce),
			LongPress: Duration(buttons.LongPress),
			ActiveLow: buttons.ActiveLow,
		},
		Ladder: LadderConfig{
			R1:        ladder.R1,
			R2:        ladder.R2,
			Buttons:   len(ladder.Buttons),
			ADCMax:    ladder.ADCMax,
			Debounce:  Duration(ladder.Debounce),
			LongPress: Duration(ladder.LongPress),
		},
		Display: DisplayConfig{Cols: display.DefaultCols, Rows: display.DefaultRows},
		Serial:  SerialConfig{BaudRate: 115200},
		Simulator: SimulatorConfig{
			Drive:          simCfg.Drive,
			HighGainFactor: simCfg.HighGainFactor,
			Noise:          simCfg.Noise,
			Seed:           simCfg.Seed,
			TargetL:        5,
			TargetC:        3,
			Floor:          0.02,
			Slope:          0.02,
			Settle:         Duration(simCfg.Settle),
		},
	}
}

// Copy returns a copy that can be changed without affecting c
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	var level slog.Level
	errs := []error{c.ControllerConfig().Validate()}

	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Settings.LogLevel))
	}
	if c.Relay.LBits < 1 || c.Relay.LBits > relay.MaxBankBits || c.Relay.CBits < 1 || c.Relay.CBits > relay.MaxBankBits {
		errs = append(errs, fmt.Errorf("bank widths must be between 1 and %d bits", relay.MaxBankBits))
	}
	if c.Search.TryBothTopologies && !c.Relay.Changeover {
		errs = append(errs, errors.New("tryBothTopologies needs a changeover relay"))
	}
	if c.Controller.OKSWR < 1 || c.Controller.AutoTuneAboveSWR < 1 {
		errs = append(errs, errors.New("SWR thresholds must be at least 1"))
	}
	if c.Ladder.Buttons < 0 || c.Ladder.Buttons > len(input.DefaultLadderConfig().Buttons) {
		errs = append(errs, fmt.Errorf("ladder supports at most %d buttons", len(input.DefaultLadderConfig().Buttons)))
	}
	if c.Ladder.R1 <= 0 || c.Ladder.R2 <= 0 {
		errs = append(errs, errors.New("ladder resistors must be positive"))
	}
	if c.Display.Cols < 1 || c.Display.Rows < 1 {
		errs = append(errs, errors.New("display needs at least one row and column"))
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, errors.New("baud rate must be positive"))
	}
	return errors.Join(errs...)
}

// LogLevel parses Settings.LogLevel, defaulting to info
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ControllerConfig converts to the controller's config
func (c *Config) ControllerConfig() controller.Config {
	return controller.Config{
		Relay: relay.Config{
			LBits:  c.Relay.LBits,
			CBits:  c.Relay.CBits,
			LWired: c.Relay.LWired,
			CWired: c.Relay.CWired,
			Settle: c.Relay.Settle.Std(),
		},
		Sampler: sampler.Config{AverageCount: c.Sampler.AverageCount},
		Search: search.Config{
			WindowWidth:       c.Search.WindowWidth,
			WindowHeight:      c.Search.WindowHeight,
			FinePasses:        c.Search.FinePasses,
			TryBothTopologies: c.Search.TryBothTopologies,
		},
		OKScore:          autotune.ScoreFromSWR(c.Controller.OKSWR),
		TXThreshold:      c.Controller.TXThreshold,
		NoSignalRetries:  c.Controller.NoSignalRetries,
		NoSignalDelay:    c.Controller.NoSignalDelay.Std(),
		Timeout:          c.Controller.Timeout.Std(),
		GainHighBelow:    c.Controller.GainHighBelow,
		GainLowAbove:     c.Controller.GainLowAbove,
		AutoTune:         c.Controller.AutoTune,
		AutoTuneAbove:    autotune.ScoreFromSWR(c.Controller.AutoTuneAboveSWR),
		AutoTuneInterval: c.Controller.AutoTuneInterval.Std(),
		PollInterval:     c.Controller.PollInterval.Std(),
		ManualLongStep:   c.Controller.ManualLongStep,
	}
}

// ButtonConfig converts to the digital button config
func (c *Config) ButtonConfig() input.ButtonConfig {
	return input.ButtonConfig{
		Debounce:  c.Buttons.Debounce.Std(),
		LongPress: c.Buttons.LongPress.Std(),
		ActiveLow: c.Buttons.ActiveLow,
	}
}

// LadderConfig converts to the analog ladder config
func (c *Config) LadderConfig() input.LadderConfig {
	return input.LadderConfig{
		Buttons:   input.DefaultLadderConfig().Buttons[:c.Ladder.Buttons],
		R1:        c.Ladder.R1,
		R2:        c.Ladder.R2,
		ADCMax:    c.Ladder.ADCMax,
		Debounce:  c.Ladder.Debounce.Std(),
		LongPress: c.Ladder.LongPress.Std(),
	}
}

// SimConfig converts to the simulated bridge config
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Drive:          c.Simulator.Drive,
		HighGainFactor: c.Simulator.HighGainFactor,
		ADCMax:         sim.DefaultConfig().ADCMax,
		Noise:          c.Simulator.Noise,
		Seed:           c.Simulator.Seed,
		Settle:         c.Simulator.Settle.Std(),
	}
}

// Target is the simulated antenna's best configuration
func (c *Config) Target() autotune.RelayConfig {
	rc := autotune.RelayConfig{L: c.Simulator.TargetL, C: c.Simulator.TargetC}
	if c.Simulator.TargetHighZ {
		rc.Topology = autotune.TopologyHighZ
	}
	return rc
}

// Surface builds the simulated antenna
func (c *Config) Surface() sim.Surface {
	surface := sim.Bowl(c.Target(), c.Simulator.Floor, c.Simulator.Slope, 0.95)
	if c.Simulator.Roughness > 0 {
		surface = sim.Rough(surface, c.Simulator.Roughness, uint64(c.Simulator.Seed))
	}
	return surface
}
