package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	. "aktis-pm-agent/internal/common"
	"aktis-pm-agent/internal/interfaces"

	"github.com/ternarybob/arbor"
)

type trackerRegistry struct {
	trackers map[string]interfaces.Tracker
}

// NewTrackerRegistry opens one client per configured tracker instance.
func NewTrackerRegistry(cfg *Config, logger arbor.ILogger) interfaces.TrackerRegistry {
	trackers := make(map[string]interfaces.Tracker)
	for name, tc := range cfg.Trackers() {
		tc := tc
		trackers[name] = NewJiraClient(&tc, logger)
		logger.Debug().
			Str("instance", name).
			Str("url", tc.URL).
			Str("project", tc.ProjectKey).
			Msg("Registered tracker instance")
	}
	return &trackerRegistry{trackers: trackers}
}

// NewStaticRegistry wraps prebuilt trackers, keyed by instance name.
func NewStaticRegistry(trackers map[string]interfaces.Tracker) interfaces.TrackerRegistry {
	normalized := make(map[string]interfaces.Tracker, len(trackers))
	for name, t := range trackers {
		normalized[strings.ToLower(name)] = t
	}
	return &trackerRegistry{trackers: normalized}
}

// Get resolves an instance name; "" and "default" select the default tracker.
func (r *trackerRegistry) Get(instance string) (interfaces.Tracker, error) {
	name := strings.ToLower(strings.TrimSpace(instance))
	if name == "" {
		name = DefaultInstance
	}

	tracker, ok := r.trackers[name]
	if !ok {
		return nil, NewValidationError("unknown_instance", fmt.Sprintf("unknown tracker instance %q", instance)).
			WithContext("known", r.Names())
	}
	return tracker, nil
}

func (r *trackerRegistry) Names() []string {
	names := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *trackerRegistry) Close() error {
	var errs []error
	for _, t := range r.trackers {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
