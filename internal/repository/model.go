package repository

import (
	"encoding/json"
	"reflect"
	"sort"
)

// DataDocument represents the persisted JSON structure: user id -> user.
// encoding/json writes the integer keys as decimal strings.
type DataDocument map[int]*User

// User is a registered account and the cities it tracks.
type User struct {
	Username      string           `json:"username" validate:"required"`
	TrackedCities map[string]*City `json:"tracked_cities" validate:"dive,keys,required,endkeys,required"`
	// CityOrder keeps tracked city names in insertion order.
	CityOrder []string `json:"city_order,omitempty"`
}

// City is a tracked location with its last fetched weather.
type City struct {
	Latitude    float64         `json:"latitude" validate:"latitude"`
	Longitude   float64         `json:"longitude" validate:"longitude"`
	Weather     *CurrentWeather `json:"weather"`
	LastUpdated *string         `json:"last_updated"`
}

// CurrentWeather mirrors the upstream current_weather object.
type CurrentWeather struct {
	Time          string   `json:"time,omitempty"`
	Interval      *int     `json:"interval,omitempty"`
	Temperature   *float64 `json:"temperature"`
	WindSpeed     *float64 `json:"windspeed"`
	WindDirection *float64 `json:"winddirection,omitempty"`
	WeatherCode   *int     `json:"weathercode,omitempty"`
	IsDay         *int     `json:"is_day,omitempty"`
}

// ApplyDefaults sets fallback values after decode.
func (d DataDocument) ApplyDefaults() {
	for id, u := range d {
		if u == nil {
			delete(d, id)
			continue
		}
		u.applyDefaults()
	}
}

func (u *User) applyDefaults() {
	if u.TrackedCities == nil {
		u.TrackedCities = map[string]*City{}
	}
	for name, c := range u.TrackedCities {
		if c == nil {
			delete(u.TrackedCities, name)
		}
	}

	// Keep known names in their recorded order, then append the rest sorted.
	seen := make(map[string]bool, len(u.CityOrder))
	order := make([]string, 0, len(u.TrackedCities))
	for _, name := range u.CityOrder {
		if _, ok := u.TrackedCities[name]; !ok || seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	var missing []string
	for name := range u.TrackedCities {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	u.CityOrder = append(order, missing...)
}

// SortedIDs returns the user ids in ascending order.
func (d DataDocument) SortedIDs() []int {
	ids := make([]int, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// UsernameTaken reports whether any user has exactly this username.
func (d DataDocument) UsernameTaken(username string) bool {
	for _, u := range d {
		if u.Username == username {
			return true
		}
	}
	return false
}

// AreDataDocumentsEqual compares two DataDocuments structurally.
// Uses JSON serialization so nil and empty collections compare equal.
func AreDataDocumentsEqual(a, b DataDocument) bool {
	if a == nil || b == nil {
		return len(a) == len(b)
	}

	aBytes, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bBytes, err := json.Marshal(b)
	if err != nil {
		return false
	}

	var aMap, bMap map[string]interface{}
	if err := json.Unmarshal(aBytes, &aMap); err != nil {
		return false
	}
	if err := json.Unmarshal(bBytes, &bMap); err != nil {
		return false
	}

	return reflect.DeepEqual(aMap, bMap)
}
