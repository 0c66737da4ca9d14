package forensic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeMapOrderAndUniqueness(t *testing.T) {
	m := NewAttributeMap()
	m.Set("File Name", "a.txt", ClassGeneral)
	m.Set("Author", "J. Doe", ClassSensitive)
	m.Set("Title", "Memo", ClassGeneral)
	// Re-setting keeps the original position.
	m.Set("File Name", "b.txt", ClassGeneral)

	require.Equal(t, 3, m.Len())
	all := m.All()
	assert.Equal(t, "File Name", all[0].Key)
	assert.Equal(t, "b.txt", all[0].Value)
	assert.Equal(t, "Author", all[1].Key)
	assert.Equal(t, "Title", all[2].Key)
}

func TestAttributeMapPartition(t *testing.T) {
	m := NewAttributeMap()
	m.Set("Author", "J. Doe", ClassSensitive)
	m.Set("Title", "Memo", ClassGeneral)
	m.Set("Producer", "Writer 2.1", ClassSensitive)

	sensitive := m.Sensitive()
	require.Len(t, sensitive, 2)
	assert.Equal(t, "Author", sensitive[0].Key)
	assert.Equal(t, "Producer", sensitive[1].Key)

	general := m.General()
	require.Len(t, general, 1)
	assert.Equal(t, "Memo", general[0].Value)
}

func TestAttributeMapAllReturnsCopy(t *testing.T) {
	m := NewAttributeMap()
	m.Set("Title", "Memo", ClassGeneral)

	all := m.All()
	all[0].Value = "tampered"

	v, _ := m.Get("Title")
	assert.Equal(t, "Memo", v)
}

func TestRecordDigestsSetTogether(t *testing.T) {
	rec := &Record{}
	assert.False(t, rec.Fingerprinted())

	err := rec.SetDigests("abc", "")
	require.Error(t, err)
	assert.False(t, rec.Fingerprinted())
	assert.Empty(t, rec.HashPrimary())

	require.NoError(t, rec.SetDigests("abc", "def"))
	assert.True(t, rec.Fingerprinted())
	assert.Equal(t, "abc", rec.HashPrimary())
	assert.Equal(t, "def", rec.HashSecondary())
}

func TestErrorKindMatching(t *testing.T) {
	err := NewError(KindCapacity, "too large", "shrink it")

	assert.True(t, errors.Is(err, &Error{Kind: KindCapacity}))
	assert.False(t, errors.Is(err, &Error{Kind: KindSealing}))
	assert.Equal(t, KindCapacity, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(KindSealing, "stamp failed", "retry", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "stamp failed")
	assert.Contains(t, err.Error(), "disk full")
}

func TestAnchorFailureRemedies(t *testing.T) {
	identity := AnchorFailure(ReasonIdentityUnavailable, "no wallet", nil)
	assert.Equal(t, KindAnchor, identity.Kind)
	assert.Contains(t, identity.Remedy, "identity")

	network := AnchorFailure(ReasonNetwork, "timeout", nil)
	assert.Contains(t, network.Remedy, "retry")
}
