package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"spin-wheel-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Log   Log  `yaml:"log"`
	Spin  Spin `yaml:"spin"`
	Game  Game `yaml:"game"`
	Cache struct {
		TTL string `yaml:"ttl"`
	} `yaml:"cache"`
	Wheels []WheelConfig `yaml:"wheels" validate:"dive"`
}

// Log configures the zap logger.
type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	App   string `yaml:"app"`
	Dir   string `yaml:"dir"`
	File  bool   `yaml:"file"`
}

// Spin configures the wheel animation.
type Spin struct {
	Duration      string `yaml:"duration"`
	FrameInterval string `yaml:"frame_interval"`
	MinRotations  int    `yaml:"min_rotations" validate:"gte=0"`
	// JitterFraction is nil when unset; an explicit 0 disables jitter.
	JitterFraction *float64 `yaml:"jitter_fraction" validate:"omitempty,gte=0,lt=1"`
	Seed           int64    `yaml:"seed"`
}

// Game configures the prize wheel economy. Zero values fall back to defaults.
type Game struct {
	InitialPoints   int    `yaml:"initial_points" validate:"gte=0"`
	InitialSpins    int    `yaml:"initial_spins" validate:"gte=0"`
	SpinCost        int    `yaml:"spin_cost" validate:"gte=0"`
	JackpotAward    int    `yaml:"jackpot_award" validate:"gte=0"`
	BonusMultiplier int    `yaml:"bonus_multiplier" validate:"gte=0"`
	BonusSpins      int    `yaml:"bonus_spins" validate:"gte=0"`
	FreeSpinsAward  int    `yaml:"free_spins_award" validate:"gte=0"`
	HistoryLimit    int    `yaml:"history_limit" validate:"gte=0"`
	RefillInterval  string `yaml:"refill_interval"`
	RefillThreshold int    `yaml:"refill_threshold" validate:"gte=0"`
	RefillAmount    int    `yaml:"refill_amount" validate:"gte=0"`
}

// WheelConfig declares a wheel in YAML.
type WheelConfig struct {
	ID        string           `yaml:"id" validate:"required"`
	Name      string           `yaml:"name"`
	Variant   string           `yaml:"variant" validate:"required,oneof=prize quiz category_quiz"`
	Segments  []SegmentConfig  `yaml:"segments" validate:"required,min=1,dive"`
	Questions []QuestionConfig `yaml:"questions" validate:"dive"`
}

type SegmentConfig struct {
	Label      string   `yaml:"label" validate:"required"`
	Kind       string   `yaml:"kind" validate:"required,oneof=points 2x jackpot free question category"`
	Points     int      `yaml:"points" validate:"gte=0"`
	Color      string   `yaml:"color"`
	QuestionID string   `yaml:"question_id"`
	Category   string   `yaml:"category"`
	Weight     *float64 `yaml:"weight" validate:"omitempty,gte=0"`
}

type QuestionConfig struct {
	ID       string         `yaml:"id" validate:"required"`
	Category string         `yaml:"category"`
	Prompt   string         `yaml:"prompt" validate:"required"`
	Points   int            `yaml:"points" validate:"gte=0"`
	Options  []OptionConfig `yaml:"options" validate:"required,min=2,dive"`
}

type OptionConfig struct {
	ID      string `yaml:"id" validate:"required"`
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

// Load reads YAML config from path and validates it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks struct tags and that every declared wheel is spinnable.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, w := range c.Wheels {
		if err := w.Wheel().Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// DurationOr parses a duration string or returns the fallback if empty or invalid.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Wheel converts the YAML declaration into a domain wheel.
func (w WheelConfig) Wheel() domain.Wheel {
	out := domain.Wheel{
		ID:      w.ID,
		Name:    w.Name,
		Variant: domain.Variant(w.Variant),
	}
	for _, s := range w.Segments {
		out.Segments = append(out.Segments, domain.Segment{
			Label:      s.Label,
			Kind:       domain.SegmentKind(s.Kind),
			Points:     s.Points,
			Color:      s.Color,
			QuestionID: s.QuestionID,
			Category:   s.Category,
			Weight:     s.Weight,
		})
	}
	for _, q := range w.Questions {
		question := domain.Question{
			ID:       q.ID,
			Category: q.Category,
			Prompt:   q.Prompt,
			Points:   q.Points,
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, domain.Option{ID: o.ID, Text: o.Text, Correct: o.Correct})
		}
		out.Questions = append(out.Questions, question)
	}
	return out
}

// WheelMap indexes the declared wheels by ID.
func (c Config) WheelMap() map[string]domain.Wheel {
	out := make(map[string]domain.Wheel, len(c.Wheels))
	for _, w := range c.Wheels {
		out[w.ID] = w.Wheel()
	}
	return out
}
