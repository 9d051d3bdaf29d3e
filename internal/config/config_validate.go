// Skylapse - Distributed Mountain Timelapse Coordination
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/tomtom215/skylapse/internal/models"
)

var (
	profileIDPattern = regexp.MustCompile(`^[a-z]$`)
	timeOfDayPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// Validate checks every section of Config and returns a single joined
// error listing every problem found, so a misconfigured deployment fails
// with a complete diagnosis rather than one error per restart.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateLocation())
	errs = append(errs, c.validateProfiles()...)
	errs = append(errs, c.validateSchedules()...)
	errs = append(errs, c.validatePi())
	errs = append(errs, c.validateProcessing())
	errs = append(errs, c.validateQueue())
	return errors.Join(errs...)
}

func (c *Config) validateLocation() error {
	if c.Location.Timezone == "" {
		return errors.New("location.timezone is required")
	}
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("location.latitude %v out of range [-90,90]", c.Location.Latitude)
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("location.longitude %v out of range [-180,180]", c.Location.Longitude)
	}
	return nil
}

func (c *Config) validateProfiles() []error {
	var errs []error
	seen := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		if !profileIDPattern.MatchString(p.ID) {
			errs = append(errs, fmt.Errorf("profile id %q must match ^[a-z]$", p.ID))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate profile id %q", p.ID))
		}
		seen[p.ID] = true
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("profile %q: name is required", p.ID))
		}
		if p.AdaptiveWB.Enabled {
			switch p.AdaptiveWB.Curve {
			case models.WBBalanced, models.WBConservative, models.WBWarm:
			default:
				errs = append(errs, fmt.Errorf("profile %q: adaptive_wb.curve %q invalid", p.ID, p.AdaptiveWB.Curve))
			}
		}
		if p.AdaptiveEV.Enabled && p.AdaptiveEV.Curve != models.EVCurveAdaptive {
			errs = append(errs, fmt.Errorf("profile %q: adaptive_ev.curve %q invalid", p.ID, p.AdaptiveEV.Curve))
		}
	}
	return errs
}

func (c *Config) validateSchedules() []error {
	var errs []error
	known := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		known[p.ID] = true
	}

	for _, s := range c.Schedules {
		if s.IntervalSeconds <= 0 {
			errs = append(errs, fmt.Errorf("schedule %q: interval_seconds must be positive", s.Name))
		}

		switch s.Kind {
		case models.ScheduleSolarRelative:
			switch s.Anchor {
			case models.AnchorSunrise, models.AnchorSunset, models.AnchorCivilDawn, models.AnchorCivilDusk, models.AnchorNoon:
			default:
				errs = append(errs, fmt.Errorf("schedule %q: anchor %q invalid", s.Name, s.Anchor))
			}
			if s.DurationMinutes <= 0 {
				errs = append(errs, fmt.Errorf("schedule %q: duration_minutes must be positive", s.Name))
			}
		case models.ScheduleTimeOfDay:
			if !timeOfDayPattern.MatchString(s.StartTime) {
				errs = append(errs, fmt.Errorf("schedule %q: start_time %q must match HH:MM", s.Name, s.StartTime))
			}
			if !timeOfDayPattern.MatchString(s.EndTime) {
				errs = append(errs, fmt.Errorf("schedule %q: end_time %q must match HH:MM", s.Name, s.EndTime))
			}
		default:
			errs = append(errs, fmt.Errorf("schedule %q: type %q must be solar_relative or time_of_day", s.Name, s.Kind))
		}

		if s.StackImages && s.StackCount < 2 {
			errs = append(errs, fmt.Errorf("schedule %q: stack_count must be >= 2 when stack_images is set", s.Name))
		}
		if sm := s.Smoothing; sm != nil {
			if sm.WindowFrames < 1 {
				errs = append(errs, fmt.Errorf("schedule %q: smoothing.window_frames must be >= 1", s.Name))
			}
			if sm.MaxChangePerFrame <= 0 || sm.MaxChangePerFrame > 1 {
				errs = append(errs, fmt.Errorf("schedule %q: smoothing.max_change_per_frame must be in (0,1]", s.Name))
			}
			if sm.ISOWeight < 0 || sm.ISOWeight > 1 {
				errs = append(errs, fmt.Errorf("schedule %q: smoothing.iso_weight must be in [0,1]", s.Name))
			}
			if sm.ShutterWeight < 0 || sm.ShutterWeight > 1 {
				errs = append(errs, fmt.Errorf("schedule %q: smoothing.shutter_weight must be in [0,1]", s.Name))
			}
		}
		if vd := s.VideoDebug; vd != nil && vd.Enabled {
			if vd.FontSize < 8 {
				errs = append(errs, fmt.Errorf("schedule %q: video_debug.font_size must be >= 8", s.Name))
			}
			switch vd.Position {
			case "bottom-left", "top-left", "bottom-right", "top-right":
			default:
				errs = append(errs, fmt.Errorf("schedule %q: video_debug.position %q invalid", s.Name, vd.Position))
			}
		}

		if len(s.Profiles) == 0 {
			errs = append(errs, fmt.Errorf("schedule %q: must reference at least one profile", s.Name))
		}
		seenProfile := make(map[string]bool, len(s.Profiles))
		for _, pid := range s.Profiles {
			if !known[pid] {
				errs = append(errs, fmt.Errorf("schedule %q: references unknown profile %q", s.Name, pid))
			}
			if seenProfile[pid] {
				// Duplicate profile references are a warning, not a hard
				// failure: harmless but worth the operator's attention.
				errs = append(errs, fmt.Errorf("schedule %q: profile %q listed more than once (warning)", s.Name, pid))
			}
			seenProfile[pid] = true
		}
	}
	return errs
}

func (c *Config) validatePi() error {
	if c.Pi.Port < 1 || c.Pi.Port > 65535 {
		return fmt.Errorf("pi.port %d out of range [1,65535]", c.Pi.Port)
	}
	if c.Pi.TimeoutSeconds <= 0 {
		return fmt.Errorf("pi.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.VideoFPS < 1 || c.Processing.VideoFPS > 120 {
		return fmt.Errorf("processing.video_fps %d out of range [1,120]", c.Processing.VideoFPS)
	}
	if c.Processing.VideoQuality < 0 || c.Processing.VideoQuality > 51 {
		return fmt.Errorf("processing.video_quality %d out of range [0,51]", c.Processing.VideoQuality)
	}
	if c.Processing.FFmpegPath == "" {
		return errors.New("processing.ffmpeg_path is required")
	}
	if c.Processing.FusionEnabled && c.Processing.FusionBinaryPath == "" {
		return errors.New("processing.fusion_binary_path is required when processing.fusion_enabled is set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case "badger":
		if c.Queue.DataDir == "" {
			return errors.New("queue.data_dir is required when queue.backend is badger")
		}
	case "nats":
		if c.Queue.NATSURL == "" {
			return errors.New("queue.nats_url is required when queue.backend is nats")
		}
	default:
		return fmt.Errorf("queue.backend %q must be badger or nats", c.Queue.Backend)
	}
	return nil
}
