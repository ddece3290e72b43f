package core

import (
	"testing"

	"github.com/fedora-infra/orphanstats/schema"
	"github.com/stretchr/testify/assert"
)

func commitMessage(branch string, files map[string]schema.FileChange) *schema.Message {
	return &schema.Message{
		ID: "msg-1",
		Body: schema.MessageBody{
			Commit: &schema.CommitDetail{
				Agent:  "bob",
				Repo:   "foo",
				Branch: branch,
				Stats:  schema.CommitStats{Files: files},
			},
		},
	}
}

func TestIsRetirement(t *testing.T) {
	deadAdded := map[string]schema.FileChange{
		"dead.package": {Additions: 1, Deletions: 0, Lines: 1},
	}
	deadRemoved := map[string]schema.FileChange{
		"dead.package": {Additions: 0, Deletions: 3, Lines: 3},
	}

	tests := []struct {
		name string
		msg  *schema.Message
		want bool
	}{
		{
			name: "dead.package added on main",
			msg:  commitMessage("main", deadAdded),
			want: true,
		},
		{
			name: "dead.package added on rawhide",
			msg:  commitMessage("rawhide", deadAdded),
			want: true,
		},
		{
			name: "feature branch is not mainline",
			msg:  commitMessage("feature-x", deadAdded),
			want: false,
		},
		{
			name: "dead.package deleted is an unretirement",
			msg:  commitMessage("main", deadRemoved),
			want: false,
		},
		{
			name: "file absent from change stats",
			msg:  commitMessage("main", map[string]schema.FileChange{"foo.spec": {Additions: 2}}),
			want: false,
		},
		{
			name: "no files at all",
			msg:  commitMessage("main", nil),
			want: false,
		},
		{
			name: "no commit body",
			msg:  &schema.Message{ID: "msg-2", Body: schema.MessageBody{Agent: "alice"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetirement(tt.msg, DefaultMainBranches))
		})
	}
}

func TestIsRetirementCustomBranches(t *testing.T) {
	msg := commitMessage("f39", map[string]schema.FileChange{
		"dead.package": {Additions: 1},
	})
	assert.False(t, IsRetirement(msg, DefaultMainBranches))
	assert.True(t, IsRetirement(msg, []string{"f39"}))
}
