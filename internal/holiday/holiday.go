package holiday

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "holiday")

// Calendar decides whether the exchange trades on a given date: weekdays
// trade unless listed as holidays.
type Calendar struct {
	mu       sync.RWMutex
	loc      *time.Location
	holidays map[string]bool
}

// NewCalendar returns a calendar evaluated in loc (UTC when nil) with the
// given holidays in 2006-01-02 form.
func NewCalendar(loc *time.Location, holidays ...string) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{loc: loc, holidays: make(map[string]bool)}
	c.Add(holidays...)
	return c
}

// Add marks dates as holidays.
func (c *Calendar) Add(dates ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range dates {
		c.holidays[d] = true
	}
}

// LoadFile merges a JSON holiday file of the form
// {"holidays": ["2025-01-01", "2025-01-28", ...]}. A missing file is not
// an error.
func (c *Calendar) LoadFile(filePath string) error {
	if filePath == "" {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read holiday file")
	}

	var config struct {
		Holidays []string `json:"holidays"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return errors.Wrap(err, "parse holiday file")
	}

	for _, d := range config.Holidays {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return errors.Wrapf(err, "holiday %q", d)
		}
	}
	c.Add(config.Holidays...)

	log.Infof("loaded %d holidays from %s", len(config.Holidays), filePath)
	return nil
}

// Len returns the number of known holidays.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.holidays)
}

// Location is the exchange time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsTradingDay reports whether date, seen in the exchange time zone, is a
// trading day.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	date = date.In(c.loc)
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.holidays[date.Format("2006-01-02")]
}
