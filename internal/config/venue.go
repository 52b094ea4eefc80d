package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
	_ "time/tzdata" // the venue zone must resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

//go:embed venue.yaml
var defaultVenue []byte

// Venue describes the single restaurant the engine serves: its slot tables,
// capacity ceilings and the lead times used for deadlines.  All clock values
// are "HH:MM" strings in the venue time zone.
type Venue struct {
	Name        string            `yaml:"name"`
	TimeZone    string            `yaml:"time_zone"`
	SlotMinutes int               `yaml:"slot_minutes"`
	Reservation ReservationPolicy `yaml:"reservation"`
	Takeout     TakeoutPolicy     `yaml:"takeout"`
	Points      PointsPolicy      `yaml:"points"`
	Themes      map[string]string `yaml:"themes"`
	Catalog     map[string]string `yaml:"catalog"`

	loc *time.Location
}

// ReservationPolicy configures dine-in admission.
type ReservationPolicy struct {
	Ceiling           int      `yaml:"ceiling"`
	ServiceMinutes    int      `yaml:"service_minutes"`
	CancelLeadMinutes int      `yaml:"cancel_lead_minutes"`
	HorizonMonths     int      `yaml:"horizon_months"`
	MaxParty          int      `yaml:"max_party"`
	Slots             []string `yaml:"slots"`
}

// TakeoutPolicy configures takeout pickup slots.
type TakeoutPolicy struct {
	Ceiling                 int      `yaml:"ceiling"`
	PickupMinutes           int      `yaml:"pickup_minutes"`
	LeadBufferMinutes       int      `yaml:"lead_buffer_minutes"`
	CancelLeadMinutes       int      `yaml:"cancel_lead_minutes"`
	RestoreCapacityOnCancel bool     `yaml:"restore_capacity_on_cancel"`
	Slots                   []string `yaml:"slots"`
}

// PointsPolicy configures loyalty points.  One point is earned per EarnUnit
// dollars actually paid.
type PointsPolicy struct {
	EarnUnit int `yaml:"earn_unit"`
}

// LoadVenue parses the venue file at path, or the embedded default when path
// is empty.
func LoadVenue(path string) (*Venue, error) {
	raw := defaultVenue
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read venue file: %w", err)
		}
		raw = b
	}
	return ParseVenue(raw)
}

// DefaultVenue returns the embedded venue.  It panics if the embedded file is
// invalid, which only happens when the repository itself is broken.
func DefaultVenue() *Venue {
	v, err := ParseVenue(defaultVenue)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseVenue decodes and validates a venue document.
func ParseVenue(raw []byte) (*Venue, error) {
	var v Venue
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse venue: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *Venue) validate() error {
	if v.SlotMinutes <= 0 {
		return errors.New("venue: slot_minutes must be positive")
	}
	loc, err := time.LoadLocation(v.TimeZone)
	if err != nil {
		return fmt.Errorf("venue: time_zone: %w", err)
	}
	v.loc = loc
	if v.Reservation.Ceiling <= 0 || v.Takeout.Ceiling <= 0 {
		return errors.New("venue: ceilings must be positive")
	}
	if v.Reservation.ServiceMinutes <= 0 || v.Reservation.MaxParty <= 0 {
		return errors.New("venue: reservation service_minutes and max_party must be positive")
	}
	if v.Takeout.PickupMinutes <= 0 {
		return errors.New("venue: takeout pickup_minutes must be positive")
	}
	if v.Points.EarnUnit <= 0 {
		return errors.New("venue: points earn_unit must be positive")
	}
	for _, table := range [][]string{v.Reservation.Slots, v.Takeout.Slots} {
		if len(table) == 0 {
			return errors.New("venue: slot tables must not be empty")
		}
		prev := -1
		for _, s := range table {
			m, err := ClockMinutes(s)
			if err != nil {
				return fmt.Errorf("venue: %w", err)
			}
			if m%v.SlotMinutes != 0 {
				return fmt.Errorf("venue: slot %s is off the %d minute grid", s, v.SlotMinutes)
			}
			if m <= prev {
				return fmt.Errorf("venue: slot %s is out of order", s)
			}
			prev = m
		}
	}
	return nil
}

// Location returns the venue time zone.
func (v *Venue) Location() *time.Location { return v.loc }

// IsReservationSlot reports whether t is a bookable dine-in start time.
func (v *Venue) IsReservationSlot(t string) bool { return contains(v.Reservation.Slots, t) }

// IsTakeoutSlot reports whether t is a takeout pickup start time.
func (v *Venue) IsTakeoutSlot(t string) bool { return contains(v.Takeout.Slots, t) }

// AffectedSlots lists the reservation slots occupied by a booking starting at
// start: every slot S with start <= S < start+service.
func (v *Venue) AffectedSlots(start string) []string {
	sm, err := ClockMinutes(start)
	if err != nil {
		return nil
	}
	end := sm + v.Reservation.ServiceMinutes
	out := make([]string, 0, 4)
	for _, s := range v.Reservation.Slots {
		m, _ := ClockMinutes(s)
		if m >= sm && m < end {
			out = append(out, s)
		}
	}
	return out
}

// CoveringStarts lists the booking start times whose service window covers
// slot: every start R with R <= slot < R+service.
func (v *Venue) CoveringStarts(slot string) []string {
	sm, err := ClockMinutes(slot)
	if err != nil {
		return nil
	}
	out := make([]string, 0, 4)
	for _, r := range v.Reservation.Slots {
		m, _ := ClockMinutes(r)
		if m <= sm && sm < m+v.Reservation.ServiceMinutes {
			out = append(out, r)
		}
	}
	return out
}

// At returns the instant of date ("YYYY-MM-DD") and clock ("HH:MM") in the
// venue time zone.
func (v *Venue) At(date, clock string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, v.loc)
}

// ProductName resolves a catalog code.  Unknown codes are returned unchanged.
func (v *Venue) ProductName(code string) string {
	if n, ok := v.Catalog[code]; ok {
		return n
	}
	return code
}

// ThemeName resolves a reservation theme.
func (v *Venue) ThemeName(theme string) string {
	if n, ok := v.Themes[theme]; ok {
		return n
	}
	return "未指定"
}

// ThemeKeys returns the accepted theme keys in sorted order.
func (v *Venue) ThemeKeys() []string {
	keys := make([]string, 0, len(v.Themes))
	for k := range v.Themes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClockMinutes converts "HH:MM" to minutes after midnight.
func ClockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockString converts minutes after midnight to "HH:MM".
func ClockString(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
