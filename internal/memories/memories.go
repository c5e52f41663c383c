// Package memories selects the photos taken on a given day in past years and
// groups them by year.
package memories

import (
	"sort"
	"strconv"
	"time"

	"github.com/brandon/onthisday/pkg/types"
)

// SelectByDay returns the photos whose capture date in loc falls on the given
// month and day, in any year. Photos without a capture time are skipped.
func SelectByDay(photos []types.Photo, month time.Month, day int, loc *time.Location) []types.Photo {
	selected := make([]types.Photo, 0)
	for i := range photos {
		p := &photos[i]
		if !p.HasTakenTime() {
			continue
		}
		taken := p.TakenAt(loc)
		if taken.Month() == month && taken.Day() == day {
			selected = append(selected, *p)
		}
	}
	return selected
}

// GroupByYear buckets photos by capture year, most recent year first. Photos
// keep their input order inside each bucket.
func GroupByYear(photos []types.Photo, loc *time.Location) []types.PhotoGroup {
	byYear := make(map[int][]types.Photo)
	for i := range photos {
		year := photos[i].TakenAt(loc).Year()
		byYear[year] = append(byYear[year], photos[i])
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	groups := make([]types.PhotoGroup, 0, len(years))
	for _, year := range years {
		groups = append(groups, types.PhotoGroup{
			Title:  strconv.Itoa(year),
			Photos: byYear[year],
		})
	}
	return groups
}

// Flatten concatenates the photos of all groups in group order
func Flatten(groups []types.PhotoGroup) []types.Photo {
	var out []types.Photo
	for _, g := range groups {
		out = append(out, g.Photos...)
	}
	return out
}
