package world

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TasksGeoJSON exports each task as a centroid feature and a member-cell
// feature, for loading into GIS tools.
func TasksGeoJSON(tasks []*Task) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range tasks {
		centroid := geojson.NewFeature(orb.Point{float64(t.Centroid.X), float64(t.Centroid.Y)})
		centroid.Properties["kind"] = "task"
		centroid.Properties["task_id"] = uint64(t.ID)
		centroid.Properties["radius"] = t.Radius
		centroid.Properties["size"] = t.Size()
		fc.Append(centroid)

		cells := make(orb.MultiPoint, len(t.Cells))
		for i, p := range t.Cells {
			cells[i] = orb.Point{float64(p.X), float64(p.Y)}
		}
		region := geojson.NewFeature(cells)
		region.Properties["kind"] = "task_cells"
		region.Properties["task_id"] = uint64(t.ID)
		fc.Append(region)
	}
	return fc
}
