package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Goal string

const (
	GoalWeightLoss  Goal = "weight-loss"
	GoalMuscleGain  Goal = "muscle-gain"
	GoalMaintenance Goal = "maintenance"
	GoalEndurance   Goal = "endurance"
)

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

type Location string

const (
	LocationHome    Location = "home"
	LocationGym     Location = "gym"
	LocationOutdoor Location = "outdoor"
)

type Diet string

const (
	DietVegetarian    Diet = "vegetarian"
	DietNonVegetarian Diet = "non-vegetarian"
	DietVegan         Diet = "vegan"
	DietKeto          Diet = "keto"
)

var (
	genders   = []Gender{GenderMale, GenderFemale, GenderOther}
	goals     = []Goal{GoalWeightLoss, GoalMuscleGain, GoalMaintenance, GoalEndurance}
	levels    = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}
	locations = []Location{LocationHome, LocationGym, LocationOutdoor}
	diets     = []Diet{DietVegetarian, DietNonVegetarian, DietVegan, DietKeto}
)

// UserDetails are the attributes a plan is generated for. Height is in
// centimetres and weight in kilograms.
type UserDetails struct {
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	Gender   Gender   `json:"gender"`
	Height   float64  `json:"height"`
	Weight   float64  `json:"weight"`
	Goal     Goal     `json:"goal"`
	Level    Level    `json:"level"`
	Location Location `json:"location"`
	Diet     Diet     `json:"diet"`
}

// ValidationError reports an invalid user attribute.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Normalize trims the name and lowercases the enumerated fields.
func (d UserDetails) Normalize() UserDetails {
	d.Name = strings.Join(strings.Fields(d.Name), " ")
	d.Gender = Gender(normalizeEnum(string(d.Gender)))
	d.Goal = Goal(normalizeEnum(string(d.Goal)))
	d.Level = Level(normalizeEnum(string(d.Level)))
	d.Location = Location(normalizeEnum(string(d.Location)))
	d.Diet = Diet(normalizeEnum(string(d.Diet)))
	return d
}

func normalizeEnum(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// Validate checks the required fields and that every enumerated field holds
// a known value. Empty optional enums are allowed.
func (d UserDetails) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case d.Age <= 0 || d.Age > 120:
		return &ValidationError{Field: "age", Reason: "must be between 1 and 120"}
	case d.Height <= 0 || d.Height > 300:
		return &ValidationError{Field: "height", Reason: "must be between 1 and 300 cm"}
	case d.Weight <= 0 || d.Weight > 500:
		return &ValidationError{Field: "weight", Reason: "must be between 1 and 500 kg"}
	}
	if err := checkEnum("gender", d.Gender, genders); err != nil {
		return err
	}
	if err := checkEnum("goal", d.Goal, goals); err != nil {
		return err
	}
	if err := checkEnum("level", d.Level, levels); err != nil {
		return err
	}
	if err := checkEnum("location", d.Location, locations); err != nil {
		return err
	}
	return checkEnum("diet", d.Diet, diets)
}

func checkEnum[T ~string](field string, v T, allowed []T) error {
	if v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return &ValidationError{Field: field, Reason: fmt.Sprintf("has unsupported value %q", v)}
}

// CanonicalKey is the cache key for d: its normalized JSON encoding, with
// fields always in declaration order.
func (d UserDetails) CanonicalKey() string {
	data, _ := json.Marshal(d.Normalize())
	return string(data)
}

// Label renders an enumerated value for people: "weight-loss" becomes
// "Weight Loss".
func Label[T ~string](v T) string {
	if v == "" {
		return "Not specified"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(v), "-", " "))
}
