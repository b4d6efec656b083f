package game

import (
	"reflect"
	"testing"

	"github.com/hitoshi/jinro/internal/model"
)

func votes(pairs ...[2]string) []model.Vote {
	vs := make([]model.Vote, 0, len(pairs))
	for _, p := range pairs {
		vs = append(vs, model.Vote{VoterID: p[0], TargetID: p[1]})
	}
	return vs
}

func TestTally(t *testing.T) {
	tests := []struct {
		name  string
		votes []model.Vote
		want  TallyResult
	}{
		{
			name:  "no votes",
			votes: nil,
			want:  TallyResult{},
		},
		{
			name:  "single vote wins",
			votes: votes([2]string{"v1", "a"}),
			want:  TallyResult{Winner: "a"},
		},
		{
			name: "clear majority",
			votes: votes(
				[2]string{"v1", "a"},
				[2]string{"v2", "a"},
				[2]string{"v3", "b"},
			),
			want: TallyResult{Winner: "a"},
		},
		{
			name: "two way tie",
			votes: votes(
				[2]string{"v1", "a"},
				[2]string{"v2", "b"},
			),
			want: TallyResult{IsTie: true, Tied: []string{"a", "b"}},
		},
		{
			name: "three way tie keeps first seen order",
			votes: votes(
				[2]string{"v1", "c"},
				[2]string{"v2", "a"},
				[2]string{"v3", "b"},
			),
			want: TallyResult{IsTie: true, Tied: []string{"c", "a", "b"}},
		},
		{
			name: "tie among subset",
			votes: votes(
				[2]string{"v1", "a"},
				[2]string{"v2", "a"},
				[2]string{"v3", "b"},
				[2]string{"v4", "b"},
				[2]string{"v5", "c"},
			),
			want: TallyResult{IsTie: true, Tied: []string{"a", "b"}},
		},
		{
			name:  "self vote counts",
			votes: votes([2]string{"a", "a"}, [2]string{"v2", "a"}),
			want:  TallyResult{Winner: "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tally(tt.votes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tally() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveNightVotes(t *testing.T) {
	tests := []struct {
		name  string
		votes []model.Vote
		want  string
	}{
		{"no votes means no kill", nil, ""},
		{"unanimous kill", votes([2]string{"w1", "a"}, [2]string{"w2", "a"}), "a"},
		{"split vote means no kill", votes([2]string{"w1", "a"}, [2]string{"w2", "b"}), ""},
		{"majority kill", votes([2]string{"w1", "a"}, [2]string{"w2", "a"}, [2]string{"w3", "b"}), "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveNightVotes(tt.votes); got != tt.want {
				t.Errorf("ResolveNightVotes() = %q, want %q", got, tt.want)
			}
		})
	}
}
