package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUser(t *testing.T) {
	cap, err := Resolve(RoleUser)
	require.NoError(t, err)

	assert.Equal(t, 5, cap.MaxResults)
	assert.True(t, cap.Allows(SourceKB))
	assert.False(t, cap.Allows(SourceTicket))
	assert.False(t, cap.Allows(SourceCI))
	assert.False(t, cap.AnalyticsEnabled)
}

func TestResolveAgent(t *testing.T) {
	cap, err := Resolve(RoleAgent)
	require.NoError(t, err)

	assert.Equal(t, 10, cap.MaxResults)
	assert.True(t, cap.Allows(SourceTicket))
	assert.True(t, cap.Allows(SourceKB))
	assert.True(t, cap.Allows(SourceCI))
	assert.False(t, cap.AnalyticsEnabled)
}

func TestResolveAdmin(t *testing.T) {
	cap, err := Resolve(RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, 15, cap.MaxResults)
	assert.True(t, cap.Allows(SourceTicket))
	assert.True(t, cap.Allows(SourceKB))
	assert.True(t, cap.Allows(SourceCI))
	assert.True(t, cap.AnalyticsEnabled)
}

func TestResolveUnknownRole(t *testing.T) {
	_, err := Resolve(Role("superuser"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRole))
}

func TestMaxResultsGrowsWithPrivilege(t *testing.T) {
	user, _ := Resolve(RoleUser)
	agent, _ := Resolve(RoleAgent)
	admin, _ := Resolve(RoleAdmin)

	assert.Less(t, user.MaxResults, agent.MaxResults)
	assert.Less(t, agent.MaxResults, admin.MaxResults)
}

func TestResolveOrDefaultFailsClosed(t *testing.T) {
	cap := ResolveOrDefault(Role("root"))

	userCap, _ := Resolve(RoleUser)
	assert.Equal(t, userCap.MaxResults, cap.MaxResults)
	assert.False(t, cap.Allows(SourceTicket))
	assert.False(t, cap.AnalyticsEnabled)
}

func TestResolveOrDefaultPassesThroughKnownRole(t *testing.T) {
	cap := ResolveOrDefault(RoleAdmin)
	assert.True(t, cap.AnalyticsEnabled)
}
