package voice

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/iabetor/threadreader/internal/thread"
)

func posts(usernames ...string) []thread.Post {
	out := make([]thread.Post, len(usernames))
	for i, u := range usernames {
		out[i] = thread.Post{Number: i + 1, Username: u, Author: u}
	}
	return out
}

func TestAssign_Scenario(t *testing.T) {
	a := Assign(posts("a", "a", "b"), 10)
	if got := a.Ranking.Usernames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("ranking = %v, want [a b]", got)
	}
	if !reflect.DeepEqual(a.Slots, map[string]int{"a": 0, "b": 1}) {
		t.Errorf("slots = %v, want map[a:0 b:1]", a.Slots)
	}
}

func TestCountAuthors_TieBreakByFirstAppearance(t *testing.T) {
	r := CountAuthors(posts("c", "b", "a", "b", "a", "d"))
	want := Ranking{{"b", 2}, {"a", 2}, {"c", 1}, {"d", 1}}
	if !reflect.DeepEqual(r, want) {
		t.Errorf("CountAuthors = %v, want %v", r, want)
	}
}

func TestAssign_RoundRobinBeyondPalette(t *testing.T) {
	var users []string
	for i := 0; i < 7; i++ {
		users = append(users, fmt.Sprintf("u%d", i))
	}
	a := Assign(posts(users...), 3)
	for rank, u := range a.Ranking.Usernames() {
		if a.Slot(u) != rank%3 {
			t.Errorf("%s 排名 %d，槽位应为 %d，得到 %d", u, rank, rank%3, a.Slot(u))
		}
	}
	if len(a.Slots) != 7 {
		t.Errorf("每个作者都应有槽位，得到 %d", len(a.Slots))
	}
}

func TestAssign_Deterministic(t *testing.T) {
	in := posts("x", "y", "x", "z", "y", "x", "w")
	first := Assign(in, 2)
	for i := 0; i < 20; i++ {
		again := Assign(in, 2)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("第 %d 次分配结果不同: %v vs %v", i, first, again)
		}
	}
}

func TestAssign_DefaultPalette(t *testing.T) {
	a := Assign(posts("a"), 0)
	if a.PaletteSize != DefaultPaletteSize {
		t.Errorf("PaletteSize = %d, want %d", a.PaletteSize, DefaultPaletteSize)
	}
	if a.Slot("nobody") != 0 {
		t.Error("未知作者应返回槽位 0")
	}
}

func TestAssignment_Roster(t *testing.T) {
	th := &thread.Thread{Posts: []thread.Post{
		{Username: "bob", Author: "Bob B"},
		{Username: "amy", Author: "Amy"},
		{Username: "amy", Author: "Amy"},
	}}
	roster := Assign(th.Posts, 10).Roster(th)
	want := []RosterEntry{
		{Author: "Amy", Username: "amy", Count: 2, Slot: 0, SlotName: "Voice A"},
		{Author: "Bob B", Username: "bob", Count: 1, Slot: 1, SlotName: "Voice B"},
	}
	if !reflect.DeepEqual(roster, want) {
		t.Errorf("Roster = %+v, want %+v", roster, want)
	}
}

func TestSlotName(t *testing.T) {
	if SlotName(0) != "Voice A" || SlotName(9) != "Voice J" {
		t.Errorf("命名槽位错误: %s %s", SlotName(0), SlotName(9))
	}
	if SlotName(11) != "Voice 12" {
		t.Errorf("SlotName(11) = %s", SlotName(11))
	}
}
