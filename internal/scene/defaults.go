package scene

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// DefaultScenes returns the five stock scenes installed on first
// startup. CreatedBy 0 marks them as system-owned.
func DefaultScenes() []Scene {
	return []Scene{
		{
			Name:        "morning",
			Description: "Morning routine - lights on, temperature up, blinds open",
			Actions: map[string]ActionSpec{
				"lights":   {Action: "turn_on", Brightness: intPtr(60), Rooms: []string{"kitchen", "bedroom"}},
				"climate":  {Action: "set_temperature", Temperature: floatPtr(21)},
				"covers":   {Action: "open", Rooms: []string{"bedroom", "living_room"}},
				"switches": {Action: "turn_on", Devices: []string{"coffee_maker"}},
			},
		},
		{
			Name:        "away",
			Description: "Away mode - secure home, save energy",
			Actions: map[string]ActionSpec{
				"lights":   {Action: "turn_off", Rooms: []string{"all"}},
				"climate":  {Action: "set_temperature", Temperature: floatPtr(18)},
				"locks":    {Action: "lock", Devices: []string{"all"}},
				"covers":   {Action: "close", Rooms: []string{"all"}},
				"security": {Action: "arm"},
			},
		},
		{
			Name:        "movie",
			Description: "Movie mode - dim lights, close blinds",
			Actions: map[string]ActionSpec{
				"lights": {Action: "turn_on", Brightness: intPtr(30), Rooms: []string{"living_room"}},
				"covers": {Action: "close", Rooms: []string{"living_room"}},
				"media":  {Action: "turn_on", Devices: []string{"tv", "soundbar"}},
			},
		},
		{
			Name:        "night",
			Description: "Night mode - dim lights, lower temperature, secure home",
			Actions: map[string]ActionSpec{
				"lights":        {Action: "turn_off", Rooms: []string{"all"}, Except: []string{"bedroom"}},
				"bedroom_light": {Action: "turn_on", Brightness: intPtr(10)},
				"climate":       {Action: "set_temperature", Temperature: floatPtr(18)},
				"locks":         {Action: "lock", Devices: []string{"all"}},
				"covers":        {Action: "close", Rooms: []string{"all"}},
			},
		},
		{
			Name:        "home",
			Description: "Arrival home - welcome settings",
			Actions: map[string]ActionSpec{
				"lights":   {Action: "turn_on", Brightness: intPtr(70), Rooms: []string{"entrance", "living_room"}},
				"climate":  {Action: "set_temperature", Temperature: floatPtr(21)},
				"locks":    {Action: "unlock", Devices: []string{"front_door"}},
				"security": {Action: "disarm"},
			},
		},
	}
}
