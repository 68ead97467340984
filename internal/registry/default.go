package registry

import "github.com/iliyamo/auditorium-netlock/internal/model"

// Default returns the built-in auditorium set used when no rooms file is
// configured.  Points are polygon coordinates on the 1920x755 floor plan.
func Default() []model.Room {
	return []model.Room{
		{ID: 11, Label: "УНЦ 11", Points: "880,41 1186,41 1186,162 880,162"},
		{ID: 14, Label: "УНЦ 14", Points: "814,247 925,247 925,486 814,486"},
		{ID: 15, Label: "УНЦ 15", Points: "705,367 814,367 814,486 705,486"},
		{ID: 17, Label: "УНЦ 17", Points: "487,247 703,247 703,486 487,486"},
		{ID: 19, Label: "УНЦ 19", Points: "162,248 307,248 307,486 162,486"},
		{ID: 20, Label: "УНЦ 20", Points: "52,487 161,487 161,691 52,691"},
		{ID: 23, Label: "УНЦ 23", Points: "309,542 507,542 507,692 309,692"},
		{ID: 24, Label: "УНЦ 24", Points: "508,542 702,542 702,692 508,692"},
		{ID: 103, Label: "103", Points: "1206,43 1542,43 1542,377 1206,377"},
		{ID: 113, Label: "113", Points: "1558,43 1892,43 1892,377 1558,377"},
		{ID: 262, Label: "262", Points: "1390,389 1724,389 1724,725 1390,725"},
	}
}
