package location

import "encoding/json"

// Defaults applied when normalizing legacy single-geofence documents.
const (
	DefaultRadiusMeters = 200
	DefaultFenceName    = "Principal"
)

// Geofence is a named circular region a subject may check in from.
type Geofence struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	Name         string  `json:"name"`
}

// UnmarshalJSON accepts both the canonical field names and the legacy
// Spanish-keyed shape (lat/lng/radio_metros/nombre) still present in
// documents written by earlier deployments.
func (g *Geofence) UnmarshalJSON(data []byte) error {
	var raw struct {
		Latitude     *float64 `json:"latitude"`
		Longitude    *float64 `json:"longitude"`
		RadiusMeters *float64 `json:"radius_meters"`
		Name         *string  `json:"name"`

		Lat          *float64 `json:"lat"`
		Lng          *float64 `json:"lng"`
		RadioMetros  *float64 `json:"radio_metros"`
		Nombre       *string  `json:"nombre"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	pick := func(a, b *float64, fallback float64) float64 {
		if a != nil {
			return *a
		}
		if b != nil {
			return *b
		}
		return fallback
	}

	g.Latitude = pick(raw.Latitude, raw.Lat, 0)
	g.Longitude = pick(raw.Longitude, raw.Lng, 0)
	g.RadiusMeters = pick(raw.RadiusMeters, raw.RadioMetros, DefaultRadiusMeters)

	switch {
	case raw.Name != nil:
		g.Name = *raw.Name
	case raw.Nombre != nil:
		g.Name = *raw.Nombre
	default:
		g.Name = DefaultFenceName
	}
	return nil
}

// Profile is the canonical per-subject location document. Stores normalize
// every persisted shape into this before handing it to callers; nothing above
// the store layer ever sees a legacy document.
type Profile struct {
	SubjectID   string     `json:"subject_id"`
	DisplayName string     `json:"display_name"`
	Geofences   []Geofence `json:"geofences"`
}

// NormalizeDocument parses a persisted location document, whatever its
// vintage. Three shapes are accepted:
//
//  1. canonical: {"subject_id":..., "geofences":[...]}
//  2. legacy list: {"cedula":..., "ubicaciones":[...]}
//  3. legacy single fence: {"cedula":..., "lat":..., "lng":..., "radio_metros":...}
//
// Legacy single-fence documents become a one-element list named "Principal"
// with a 200 m default radius. Upgrades happen lazily on read; documents are
// only rewritten in the new shape when the profile is next mutated.
func NormalizeDocument(data []byte) (Profile, error) {
	var raw struct {
		SubjectID   string          `json:"subject_id"`
		Cedula      string          `json:"cedula"`
		DisplayName string          `json:"display_name"`
		NombreUser  string          `json:"nombre_usuario"`
		Geofences   []Geofence      `json:"geofences"`
		Ubicaciones []Geofence      `json:"ubicaciones"`
		Lat         *float64        `json:"lat"`
		Lng         *float64        `json:"lng"`
		RadioMetros *float64        `json:"radio_metros"`
		Nombre      json.RawMessage `json:"nombre"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, err
	}

	p := Profile{
		SubjectID:   raw.SubjectID,
		DisplayName: raw.DisplayName,
	}
	if p.SubjectID == "" {
		p.SubjectID = raw.Cedula
	}
	if p.DisplayName == "" {
		p.DisplayName = raw.NombreUser
	}

	switch {
	case len(raw.Geofences) > 0:
		p.Geofences = raw.Geofences
	case len(raw.Ubicaciones) > 0:
		p.Geofences = raw.Ubicaciones
	case raw.Lat != nil || raw.Lng != nil:
		fence := Geofence{
			RadiusMeters: DefaultRadiusMeters,
			Name:         DefaultFenceName,
		}
		if raw.Lat != nil {
			fence.Latitude = *raw.Lat
		}
		if raw.Lng != nil {
			fence.Longitude = *raw.Lng
		}
		if raw.RadioMetros != nil {
			fence.RadiusMeters = *raw.RadioMetros
		}
		p.Geofences = []Geofence{fence}
	}

	return p, nil
}

// Fix is a single GPS coordinate reading.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// Containment is the result of resolving a fix against a subject's geofences.
type Containment struct {
	Inside          bool
	NearestDistance float64
	NearestName     string
}
