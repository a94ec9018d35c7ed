package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestPassStatus(t *testing.T) {
    t.Run("should parse the three literals and reject others", func(t *testing.T) {
        for _, s := range []string{"OPEN", "OUT", "CLOSED"} {
            st, err := ParsePassStatus(s)
            assert.NoError(t, err)
            assert.Equal(t, PassStatus(s), st)
        }
        _, err := ParsePassStatus("open")
        assert.Error(t, err)
        _, err = ParsePassStatus("")
        assert.Error(t, err)
    })

    t.Run("should allow only forward transitions", func(t *testing.T) {
        cases := []struct {
            from, to PassStatus
            want     bool
        }{
            {PassOpen, PassOut, true},
            {PassOpen, PassClosed, true},
            {PassOut, PassClosed, true},
            {PassOut, PassOpen, false},
            {PassOpen, PassOpen, false},
            {PassClosed, PassOpen, false},
            {PassClosed, PassOut, false},
            {PassClosed, PassClosed, false},
        }
        for _, tc := range cases {
            assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
        }
    })

    t.Run("should treat open and out as non-terminal", func(t *testing.T) {
        assert.True(t, PassOpen.NonTerminal())
        assert.True(t, PassOut.NonTerminal())
        assert.False(t, PassClosed.NonTerminal())
    })
}
