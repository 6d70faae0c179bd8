package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject() *Project {
	return &Project{
		ID:   "p1",
		Name: "Tower A",
		Packages: []*Package{
			{
				Name: "Foundations",
				SubPackages: []*SubPackage{
					{
						Name: "Excavation",
						Tasks: []*Task{
							{Name: "Dig", Total: 10, Status: StatusApproved, Submitters: NewUserSet("alice"), Reviewers: NewUserSet("bob")},
							{Name: "Haul", Total: 4, Status: StatusInProgress, Submitters: NewUserSet("carol"), Reviewers: NewUserSet("bob")},
						},
					},
					{Name: "Empty"},
				},
			},
		},
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusInProgress, StatusSubmitted, StatusApproved, StatusRejected} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("done").Valid())
	assert.False(t, Status("").Valid())
}

func TestProject_Lookup(t *testing.T) {
	p := sampleProject()

	tests := []struct {
		name    string
		path    Path
		want    string
		wantErr string
	}{
		{name: "first task", path: Path{0, 0, 0}, want: "Dig"},
		{name: "second task", path: Path{0, 0, 1}, want: "Haul"},
		{name: "package out of range", path: Path{1, 0, 0}, wantErr: "package index 1"},
		{name: "negative package", path: Path{-1, 0, 0}, wantErr: "package index -1"},
		{name: "subpackage out of range", path: Path{0, 2, 0}, wantErr: "subpackage index 2"},
		{name: "task in empty subpackage", path: Path{0, 1, 0}, wantErr: "task index 0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pkg, sub, task, err := p.Lookup(tc.path)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Foundations", pkg.Name)
			assert.Equal(t, "Excavation", sub.Name)
			assert.Equal(t, tc.want, task.Name)
		})
	}
}

func TestAllApprovedHelpers(t *testing.T) {
	p := sampleProject()
	sub := p.Packages[0].SubPackages[0]

	assert.False(t, sub.AllTasksApproved())
	sub.Tasks[1].Status = StatusApproved
	assert.True(t, sub.AllTasksApproved())

	assert.False(t, p.Packages[0].SubPackages[1].AllTasksApproved(), "empty subpackage is not approved")
	assert.False(t, p.Packages[0].AllSubPackagesApproved())
	assert.False(t, (&Project{}).AllPackagesApproved())
}

func TestParticipants(t *testing.T) {
	p := sampleProject()

	assert.Equal(t, UserSet{"alice", "bob", "carol"}, p.Packages[0].SubPackages[0].Participants())
	assert.Equal(t, UserSet{"alice", "bob", "carol"}, p.Participants())
	assert.Nil(t, p.Packages[0].SubPackages[1].Participants())
}

func TestProject_CloneIsDeep(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := sampleProject()
	p.Packages[0].SubPackages[0].Tasks[0].ApprovedAt = &now
	completed := now
	p.Packages[0].SubPackages[0].CompletedAt = &completed

	cp := p.Clone()
	require.Equal(t, p, cp)

	cp.Packages[0].SubPackages[0].Tasks[0].Status = StatusRejected
	cp.Packages[0].SubPackages[0].Tasks[0].Submitters[0] = "mallory"
	*cp.Packages[0].SubPackages[0].Tasks[0].ApprovedAt = now.Add(time.Hour)
	*cp.Packages[0].SubPackages[0].CompletedAt = now.Add(time.Hour)
	cp.Packages[0].Name = "Changed"

	assert.Equal(t, StatusApproved, p.Packages[0].SubPackages[0].Tasks[0].Status)
	assert.Equal(t, "alice", p.Packages[0].SubPackages[0].Tasks[0].Submitters[0])
	assert.Equal(t, now, *p.Packages[0].SubPackages[0].Tasks[0].ApprovedAt)
	assert.Equal(t, now, *p.Packages[0].SubPackages[0].CompletedAt)
	assert.Equal(t, "Foundations", p.Packages[0].Name)
	assert.Nil(t, (*Project)(nil).Clone())
}

func TestProject_TaskCount(t *testing.T) {
	assert.Equal(t, 2, sampleProject().TaskCount())
}

func TestUserSet(t *testing.T) {
	s := NewUserSet("a", " b ", "", "a", "c")
	assert.Equal(t, UserSet{"a", "b", "c"}, s)
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("z"))
	assert.Equal(t, 3, s.Len())

	u := s.Union(NewUserSet("c", "d"))
	assert.Equal(t, UserSet{"a", "b", "c", "d"}, u)
	assert.Equal(t, UserSet{"a", "b", "c"}, s, "union must not mutate receiver")

	assert.Nil(t, UserSet(nil).Union(nil))
	assert.Nil(t, UserSet(nil).Slice())
	assert.Equal(t, []string{"a", "b", "c"}, s.Slice())

	cp := s.Clone()
	cp[0] = "x"
	assert.Equal(t, "a", s[0])
}
