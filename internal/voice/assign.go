// Package voice 按发言数为作者分配音色槽位。
package voice

import (
	"sort"
	"strconv"

	"github.com/iabetor/threadreader/internal/thread"
)

// DefaultPaletteSize 默认音色槽位数。
const DefaultPaletteSize = 10

var slotNames = []string{
	"Voice A", "Voice B", "Voice C", "Voice D", "Voice E",
	"Voice F", "Voice G", "Voice H", "Voice I", "Voice J",
}

// SlotName 返回槽位的显示名，超出命名范围时用编号。
func SlotName(slot int) string {
	if slot >= 0 && slot < len(slotNames) {
		return slotNames[slot]
	}
	return "Voice " + strconv.Itoa(slot+1)
}

// AuthorCount 作者及其发言数。
type AuthorCount struct {
	Username string
	Count    int
}

// Ranking 按发言数降序排列，发言数相同时先出现的在前。
type Ranking []AuthorCount

// CountAuthors 统计每个作者的发言数并排序。
func CountAuthors(posts []thread.Post) Ranking {
	index := make(map[string]int)
	var ranking Ranking
	for _, p := range posts {
		if i, ok := index[p.Username]; ok {
			ranking[i].Count++
			continue
		}
		index[p.Username] = len(ranking)
		ranking = append(ranking, AuthorCount{Username: p.Username, Count: 1})
	}
	// 稳定排序保留首次出现的顺序
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	return ranking
}

// Usernames 按排名返回用户名。
func (r Ranking) Usernames() []string {
	names := make([]string, len(r))
	for i, a := range r {
		names[i] = a.Username
	}
	return names
}

// Assignment 作者到音色槽位的映射，对同一帖子总是相同。
type Assignment struct {
	Ranking     Ranking
	Slots       map[string]int
	PaletteSize int
}

// Assign 按排名为作者分配槽位：slot = 排名 % paletteSize。
// paletteSize <= 0 时使用 DefaultPaletteSize。
func Assign(posts []thread.Post, paletteSize int) Assignment {
	if paletteSize <= 0 {
		paletteSize = DefaultPaletteSize
	}
	ranking := CountAuthors(posts)
	slots := make(map[string]int, len(ranking))
	for rank, a := range ranking {
		slots[a.Username] = rank % paletteSize
	}
	return Assignment{Ranking: ranking, Slots: slots, PaletteSize: paletteSize}
}

// Slot 返回作者的槽位，未知作者为 0。
func (a Assignment) Slot(username string) int {
	return a.Slots[username]
}

// RosterEntry 作者列表中的一行。
type RosterEntry struct {
	Author   string
	Username string
	Count    int
	Slot     int
	SlotName string
}

// Roster 按排名生成作者列表，用于展示。
func (a Assignment) Roster(t *thread.Thread) []RosterEntry {
	entries := make([]RosterEntry, 0, len(a.Ranking))
	for _, r := range a.Ranking {
		slot := a.Slot(r.Username)
		entries = append(entries, RosterEntry{
			Author:   t.Author(r.Username),
			Username: r.Username,
			Count:    r.Count,
			Slot:     slot,
			SlotName: SlotName(slot),
		})
	}
	return entries
}
