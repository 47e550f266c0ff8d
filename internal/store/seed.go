package store

import (
	"fmt"
	"io"
	"os"

	"github.com/minerva-brain/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document describing initial data. Each section is only
// applied when its table is still empty, so re-running a seed is harmless.
type SeedFile struct {
	Words []struct {
		Word       string `yaml:"word"`
		Definition string `yaml:"definition"`
		ExtraJSON  string `yaml:"extra_json"`
		Active     *bool  `yaml:"active"`
	} `yaml:"words"`
	Services []struct {
		Name             string `yaml:"name"`
		Slug             string `yaml:"slug"`
		Kind             string `yaml:"kind"`
		Target           string `yaml:"target"`
		CheckIntervalSec int    `yaml:"check_interval_sec"`
		TimeoutSec       int    `yaml:"timeout_sec"`
	} `yaml:"services"`
	Reminders []struct {
		Label          string   `yaml:"label"`
		Description    string   `yaml:"description"`
		ScheduleKind   string   `yaml:"schedule_kind"`
		TimeOfDay      string   `yaml:"time_of_day"`
		DaysOfWeek     []int    `yaml:"days_of_week"`
		GraceBeforeMin int      `yaml:"grace_before_min"`
		GraceAfterMin  *int     `yaml:"grace_after_min"`
		Channels       []string `yaml:"channels"`
	} `yaml:"reminders"`
}

// ParseSeedFromReader parses a seed document from an io.Reader.
func ParseSeedFromReader(r io.Reader) (*SeedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, err
	}

	return &seed, nil
}

// Seed loads the YAML seed file at path and inserts initial rows into empty
// tables. A missing file is not an error.
func (d *Duck) Seed(path string) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer file.Close()

	seed, err := ParseSeedFromReader(file)
	if err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	return d.ApplySeed(seed)
}

// ApplySeed inserts the seed rows into empty tables.
func (d *Duck) ApplySeed(seed *SeedFile) error {
	if empty, err := d.tableEmpty("words"); err != nil {
		return err
	} else if empty {
		for _, sw := range seed.Words {
			w := &models.Word{
				Word:       sw.Word,
				Definition: sw.Definition,
				Active:     sw.Active == nil || *sw.Active,
			}
			if sw.ExtraJSON != "" {
				extra := sw.ExtraJSON
				w.ExtraJSON = &extra
			}
			if err := d.CreateWord(w); err != nil {
				return fmt.Errorf("seeding word %q: %w", sw.Word, err)
			}
		}
	}

	if empty, err := d.tableEmpty("services"); err != nil {
		return err
	} else if empty {
		for _, ss := range seed.Services {
			kind, err := models.ValidateServiceKind(ss.Kind)
			if err != nil {
				return fmt.Errorf("seeding service %q: %w", ss.Slug, err)
			}
			s := &models.Service{
				Name:             ss.Name,
				Slug:             ss.Slug,
				Kind:             kind,
				Target:           ss.Target,
				CheckIntervalSec: ss.CheckIntervalSec,
				TimeoutSec:       ss.TimeoutSec,
				Enabled:          true,
				AlertOnDown:      true,
				AlertOnRecovery:  true,
			}
			if s.CheckIntervalSec <= 0 {
				s.CheckIntervalSec = 60
			}
			if s.TimeoutSec <= 0 {
				s.TimeoutSec = 5
			}
			if err := d.CreateService(s); err != nil {
				return fmt.Errorf("seeding service %q: %w", ss.Slug, err)
			}
		}
	}

	if empty, err := d.tableEmpty("reminders"); err != nil {
		return err
	} else if empty {
		for _, sr := range seed.Reminders {
			kind, err := models.ValidateScheduleKind(sr.ScheduleKind)
			if err != nil {
				return fmt.Errorf("seeding reminder %q: %w", sr.Label, err)
			}
			if _, _, err := models.ParseTimeOfDay(sr.TimeOfDay); err != nil {
				return fmt.Errorf("seeding reminder %q: %w", sr.Label, err)
			}
			graceAfter := 60
			if sr.GraceAfterMin != nil {
				graceAfter = *sr.GraceAfterMin
			}
			channels := sr.Channels
			if len(channels) == 0 {
				channels = []string{models.ChannelTelegram, models.ChannelESP32}
			}
			r := &models.Reminder{
				Label:          sr.Label,
				ScheduleKind:   kind,
				TimeOfDay:      sr.TimeOfDay,
				DaysOfWeek:     sr.DaysOfWeek,
				GraceBeforeMin: sr.GraceBeforeMin,
				GraceAfterMin:  graceAfter,
				Channels:       channels,
				Enabled:        true,
			}
			if sr.Description != "" {
				desc := sr.Description
				r.Description = &desc
			}
			if err := d.CreateReminder(r); err != nil {
				return fmt.Errorf("seeding reminder %q: %w", sr.Label, err)
			}
		}
	}

	return nil
}

func (d *Duck) tableEmpty(table string) (bool, error) {
	var count int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		return false, fmt.Errorf("counting %s: %w", table, err)
	}
	return count == 0, nil
}
