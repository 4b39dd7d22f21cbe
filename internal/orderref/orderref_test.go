package orderref_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-course/internal/orderref"
)

func TestEncodeShape(t *testing.T) {
	at := time.UnixMilli(1717171717171)
	ref := orderref.EncodeAt("basic", at)

	parts := strings.Split(ref, "_")
	require.Len(t, parts, 4)
	require.Equal(t, "course", parts[0])
	require.Equal(t, "basic", parts[1])
	require.Equal(t, "1717171717171", parts[2])
	require.Len(t, parts[3], 9)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, courseType := range []string{"basic", "advanced"} {
		ref := orderref.Encode(courseType)
		got, err := orderref.Decode(ref)
		require.NoError(t, err)
		require.Equal(t, courseType, got)
	}
}

func TestEncodeSuffixVaries(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		seen[orderref.Encode("basic")] = struct{}{}
	}
	require.Len(t, seen, 50)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"course",
		"course_basic",
		"course_basic_123",
		"order_basic_123_abcdefghi",
		"course__123_abcdefghi",
		"course_basic_notatime_abcdefghi",
		strings.Repeat("x", 200),
	}
	for _, ref := range cases {
		_, err := orderref.Decode(ref)
		require.ErrorIs(t, err, orderref.ErrMalformed, "ref %q", ref)
	}
}

func TestDecodeToleratesExtraSegments(t *testing.T) {
	// Suffixes are free-form; anything after the timestamp is ignored.
	got, err := orderref.Decode("course_basic_1717171717171_abc_def")
	require.NoError(t, err)
	require.Equal(t, "basic", got)
}
