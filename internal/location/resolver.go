package location

import "bioentry/internal/geo"

// ResolveContainment finds the nearest geofence to a fix and reports whether
// the fix sits inside it.
//
// Containment is decided by the nearest fence only: the fix is inside iff the
// minimum-distance fence's distance is within that fence's own radius. A
// farther fence whose larger radius would also contain the point does NOT make
// the fix inside. Deployed clients depend on this exact behavior, so it must
// not be changed to an "inside any fence" check. Ties on distance keep the
// first fence encountered in iteration order.
//
// An empty fence list resolves to {Inside: false, NearestDistance: 0,
// NearestName: ""}.
func ResolveContainment(fix Fix, fences []Geofence) Containment {
	if len(fences) == 0 {
		return Containment{}
	}

	out := Containment{NearestDistance: -1}
	for _, fence := range fences {
		d := geo.DistanceMeters(fix.Latitude, fix.Longitude, fence.Latitude, fence.Longitude)
		if out.NearestDistance >= 0 && d >= out.NearestDistance {
			continue
		}
		out.NearestDistance = d
		out.NearestName = fence.Name
		out.Inside = d <= fence.RadiusMeters
	}
	return out
}
