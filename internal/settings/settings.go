// Package settings is the user-tunable configuration of the timer.
// Values live in a viper-managed config file; the Store wraps viper so
// the rest of the program deals in a typed Settings value and can watch
// for edits to the file while the app is open.
package settings

import (
	"errors"
	"fmt"
	"log"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/openhiit/openhiit/internal/catalog"
	"github.com/openhiit/openhiit/internal/events"
	"github.com/openhiit/openhiit/internal/session"
)

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds every user-tunable knob of a session, in the units the
// config file uses (whole seconds).
type Settings struct {
	WorkPeriodSec       int
	RestPeriodSec       int
	WorkPeriodsPerCycle int
	Cycles              int
	PrepareLengthSec    int
	PeriodCountDownSec  int
	BeepEnabled         bool
	ExerciseTypes       []string
}

// SetDefaults registers the out-of-the-box configuration on v. Every key
// gets a default so a missing config file still yields a runnable setup.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("session.work_period_sec", 20)
	v.SetDefault("session.rest_period_sec", 10)
	v.SetDefault("session.work_periods_per_cycle", 8)
	v.SetDefault("session.cycles", 1)
	v.SetDefault("session.prepare_length_sec", 5)
	v.SetDefault("session.period_countdown_sec", 5)
	v.SetDefault("session.beep_enabled", true)

	types := make([]string, 0, len(catalog.AllTypes))
	for _, t := range catalog.AllTypes {
		types = append(types, string(t))
	}
	v.SetDefault("session.exercise_types", types)
}

// Validate checks the settings for values a session cannot be built from.
func (s Settings) Validate() error {
	if s.WorkPeriodSec <= 0 {
		return fmt.Errorf("%w: work period must be positive, got %d", ErrInvalidSettings, s.WorkPeriodSec)
	}
	if s.RestPeriodSec <= 0 {
		return fmt.Errorf("%w: rest period must be positive, got %d", ErrInvalidSettings, s.RestPeriodSec)
	}
	if s.WorkPeriodsPerCycle <= 0 {
		return fmt.Errorf("%w: work periods per cycle must be positive, got %d", ErrInvalidSettings, s.WorkPeriodsPerCycle)
	}
	if s.Cycles <= 0 {
		return fmt.Errorf("%w: cycles must be positive, got %d", ErrInvalidSettings, s.Cycles)
	}
	if s.PrepareLengthSec < 0 {
		return fmt.Errorf("%w: prepare length cannot be negative, got %d", ErrInvalidSettings, s.PrepareLengthSec)
	}
	if s.PeriodCountDownSec < 0 {
		return fmt.Errorf("%w: period countdown cannot be negative, got %d", ErrInvalidSettings, s.PeriodCountDownSec)
	}
	if len(s.ExerciseTypes) == 0 {
		return fmt.Errorf("%w: at least one exercise type must be selected", ErrInvalidSettings)
	}
	for _, raw := range s.ExerciseTypes {
		if !catalog.Type(raw).Valid() {
			return fmt.Errorf("%w: unknown exercise type %q", ErrInvalidSettings, raw)
		}
	}
	return nil
}

// SessionConfig converts the settings into the builder's configuration,
// in milliseconds.
func (s Settings) SessionConfig() session.Config {
	types := make([]catalog.Type, 0, len(s.ExerciseTypes))
	for _, raw := range s.ExerciseTypes {
		types = append(types, catalog.Type(raw))
	}
	return session.Config{
		WorkPeriodMs:        int64(s.WorkPeriodSec) * 1000,
		RestPeriodMs:        int64(s.RestPeriodSec) * 1000,
		WorkPeriodsPerCycle: s.WorkPeriodsPerCycle,
		Cycles:              s.Cycles,
		PrepareLengthMs:     int64(s.PrepareLengthSec) * 1000,
		PeriodCountDownMs:   int64(s.PeriodCountDownSec) * 1000,
		BeepEnabled:         s.BeepEnabled,
		SelectedTypes:       types,
	}
}

// Store reads and watches settings through a viper instance. The caller
// owns the viper setup (config file location, env binding); the Store
// only deals with the "session.*" keys.
type Store struct {
	v       *viper.Viper
	logger  *log.Logger
	changes *events.Observable[Settings]
}

// NewStore wraps v. Panics on nil arguments.
func NewStore(v *viper.Viper, logger *log.Logger) *Store {
	if v == nil {
		panic("settings: nil viper")
	}
	if logger == nil {
		panic("settings: nil logger")
	}
	SetDefaults(v)
	return &Store{
		v:       v,
		logger:  logger,
		changes: events.NewObservable[Settings](false),
	}
}

// Load reads and validates the current settings. Values are read per
// key so a partial config file falls back to the defaults for every key
// it does not set.
func (s *Store) Load() (Settings, error) {
	out := Settings{
		WorkPeriodSec:       s.v.GetInt("session.work_period_sec"),
		RestPeriodSec:       s.v.GetInt("session.rest_period_sec"),
		WorkPeriodsPerCycle: s.v.GetInt("session.work_periods_per_cycle"),
		Cycles:              s.v.GetInt("session.cycles"),
		PrepareLengthSec:    s.v.GetInt("session.prepare_length_sec"),
		PeriodCountDownSec:  s.v.GetInt("session.period_countdown_sec"),
		BeepEnabled:         s.v.GetBool("session.beep_enabled"),
		ExerciseTypes:       s.v.GetStringSlice("session.exercise_types"),
	}
	if err := out.Validate(); err != nil {
		return Settings{}, err
	}
	return out, nil
}

// Save validates and writes the settings back to the config file.
func (s *Store) Save(st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.v.Set("session.work_period_sec", st.WorkPeriodSec)
	s.v.Set("session.rest_period_sec", st.RestPeriodSec)
	s.v.Set("session.work_periods_per_cycle", st.WorkPeriodsPerCycle)
	s.v.Set("session.cycles", st.Cycles)
	s.v.Set("session.prepare_length_sec", st.PrepareLengthSec)
	s.v.Set("session.period_countdown_sec", st.PeriodCountDownSec)
	s.v.Set("session.beep_enabled", st.BeepEnabled)
	s.v.Set("session.exercise_types", st.ExerciseTypes)
	if err := s.v.WriteConfig(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Watch starts following the config file; subsequent edits are published
// to subscribers. Edits that fail validation are logged and dropped so a
// half-saved file never reaches the rest of the program.
func (s *Store) Watch() {
	s.v.OnConfigChange(func(_ fsnotify.Event) {
		st, err := s.Load()
		if err != nil {
			s.logger.Printf("settings: ignoring config change: %v", err)
			return
		}
		s.changes.Publish(st)
	})
	s.v.WatchConfig()
}

// Subscribe registers fn for settings changes and returns a cancel func.
func (s *Store) Subscribe(fn func(Settings)) func() {
	return s.changes.Subscribe(fn)
}
