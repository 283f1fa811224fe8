package services

import (
	"fmt"
	"math"
	"sort"
)

// LevelConfig: XP needed for the *next* level follows floor(BaseXPPerLevel * n^1.2)
const BaseXPPerLevel = 100

// DefaultMaxLevel bounds the generated default table.
const DefaultMaxLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
// e.g., xpForNextLevel(1) = XP to go from L1 → L2
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelTable holds cumulative point thresholds: entry i is the minimum total
// for level i+1. Entry 0 is always 0.
type LevelTable []int64

// DefaultLevelTable builds the cumulative table for levels 1..DefaultMaxLevel.
func DefaultLevelTable() LevelTable {
	table := make(LevelTable, DefaultMaxLevel)
	for lvl := 2; lvl <= DefaultMaxLevel; lvl++ {
		table[lvl-1] = table[lvl-2] + xpForNextLevel(lvl-1)
	}
	return table
}

// Validate checks the table starts at 0 and is strictly increasing.
func (t LevelTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("level table is empty")
	}
	if t[0] != 0 {
		return fmt.Errorf("level table must start at 0, got %d", t[0])
	}
	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return fmt.Errorf("level table not strictly increasing at level %d (%d <= %d)", i+1, t[i], t[i-1])
		}
	}
	return nil
}

// LevelInfo is the level a point total maps to and the distance to the next one.
type LevelInfo struct {
	Level           int   `json:"level"`
	PointsIntoLevel int64 `json:"points_into_level"`
	PointsToNext    int64 `json:"points_to_next"` // 0 at the top level
}

// ForPoints maps a point total to its level. Total and monotonic non-decreasing;
// negative totals are treated as 0.
func (t LevelTable) ForPoints(points int64) LevelInfo {
	if len(t) == 0 {
		return LevelInfo{Level: 1}
	}
	if points < 0 {
		points = 0
	}
	// first threshold strictly above points; level is its index
	idx := sort.Search(len(t), func(i int) bool { return t[i] > points })
	level := idx
	if level < 1 {
		level = 1
	}
	info := LevelInfo{
		Level:           level,
		PointsIntoLevel: points - t[level-1],
	}
	if level < len(t) {
		info.PointsToNext = t[level] - points
	}
	return info
}

// LevelForPoints maps points to a level using the default table.
func LevelForPoints(points int64) LevelInfo {
	return defaultLevels.ForPoints(points)
}

var defaultLevels = DefaultLevelTable()
