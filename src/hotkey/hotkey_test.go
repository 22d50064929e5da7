package hotkey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnikey/src/command"
)

const (
	vkE     = 69
	vkG     = 71
	vkLCtrl = 162
	vkRCtrl = 163
	vkLAlt  = 164
)

func TestMatcherFiresBoundCommand(t *testing.T) {
	m, err := newMatcher(map[command.Command]string{
		command.Enhance:    "Ctrl+Alt+E",
		command.FixGrammar: "Ctrl+Alt+G",
	}, keyNameToRawcodes)
	require.NoError(t, err)

	_, ok := m.press(vkLCtrl)
	assert.False(t, ok)
	_, ok = m.press(vkLAlt)
	assert.False(t, ok)

	cmd, ok := m.press(vkG)
	require.True(t, ok)
	assert.Equal(t, command.FixGrammar, cmd)

	// Auto-repeat while held must not fire again.
	_, ok = m.press(vkG)
	assert.False(t, ok)

	m.release(vkG)
	cmd, ok = m.press(vkE)
	require.True(t, ok)
	assert.Equal(t, command.Enhance, cmd)
}

func TestMatcherAcceptsEitherModifierSide(t *testing.T) {
	m, err := newMatcher(map[command.Command]string{command.Enhance: "Ctrl+E"}, keyNameToRawcodes)
	require.NoError(t, err)

	m.press(vkRCtrl)
	cmd, ok := m.press(vkE)
	require.True(t, ok)
	assert.Equal(t, command.Enhance, cmd)
}

func TestMatcherRequiresAllKeys(t *testing.T) {
	m, err := newMatcher(map[command.Command]string{command.Enhance: "Ctrl+Alt+E"}, keyNameToRawcodes)
	require.NoError(t, err)

	m.press(vkLCtrl)
	_, ok := m.press(vkE)
	assert.False(t, ok)

	m.release(vkLCtrl)
	m.press(vkLAlt)
	_, ok = m.press(vkLCtrl)
	assert.True(t, ok, "completing the combination with a modifier also fires")
}

func TestMatcherPrefersLongerCombination(t *testing.T) {
	m, err := newMatcher(map[command.Command]string{
		command.Enhance:    "Alt+E",
		command.CustomTask: "Ctrl+Alt+E",
	}, keyNameToRawcodes)
	require.NoError(t, err)

	m.press(vkLCtrl)
	m.press(vkLAlt)
	cmd, ok := m.press(vkE)
	require.True(t, ok)
	assert.Equal(t, command.CustomTask, cmd)
}

func TestMatcherRejectsUnknownKey(t *testing.T) {
	_, err := newMatcher(map[command.Command]string{command.Enhance: "Ctrl+Banana"}, keyNameToRawcodes)
	assert.Error(t, err)

	_, err = newMatcher(map[command.Command]string{command.Enhance: " + "}, keyNameToRawcodes)
	assert.Error(t, err)
}

type fakeOS struct {
	refuse    map[string]bool
	fires     map[string]func()
	released  []string
	passive   *matcher
	hookEnded bool
}

func stubRegistration(t *testing.T, refuse ...string) *fakeOS {
	t.Helper()
	f := &fakeOS{refuse: make(map[string]bool), fires: make(map[string]func())}
	for _, combo := range refuse {
		f.refuse[combo] = true
	}
	oldReg, oldStart, oldStop := registerExclusive, startPassive, stopPassive
	registerExclusive = func(combo string, fire func()) (func(), error) {
		if f.refuse[combo] {
			return nil, errors.New("already grabbed")
		}
		f.fires[combo] = fire
		return func() { f.released = append(f.released, combo) }, nil
	}
	startPassive = func(m *matcher, _ func(command.Command)) { f.passive = m }
	stopPassive = func() { f.hookEnded = true }
	t.Cleanup(func() {
		Stop()
		registerExclusive, startPassive, stopPassive = oldReg, oldStart, oldStop
	})
	return f
}

func TestListenClaimsEveryBindingExclusively(t *testing.T) {
	f := stubRegistration(t)
	var got []command.Command
	err := Listen(map[command.Command]string{
		command.Enhance:    "Ctrl+Alt+E",
		command.FixGrammar: "Ctrl+Alt+G",
	}, func(c command.Command) { got = append(got, c) })
	require.NoError(t, err)

	assert.Nil(t, f.passive, "no passive hook when the OS accepted every chord")
	require.Contains(t, f.fires, "Ctrl+Alt+G")
	f.fires["Ctrl+Alt+G"]()
	assert.Equal(t, []command.Command{command.FixGrammar}, got)

	Stop()
	assert.ElementsMatch(t, []string{"Ctrl+Alt+E", "Ctrl+Alt+G"}, f.released)
	assert.False(t, f.hookEnded)
}

func TestListenFallsBackToPassiveHookForRefusedChord(t *testing.T) {
	f := stubRegistration(t, "Ctrl+Alt+G")
	err := Listen(map[command.Command]string{
		command.Enhance:    "Ctrl+Alt+E",
		command.FixGrammar: "Ctrl+Alt+G",
	}, func(command.Command) {})
	require.NoError(t, err)

	require.NotNil(t, f.passive)
	require.Len(t, f.passive.bindings, 1)
	assert.Equal(t, command.FixGrammar, f.passive.bindings[0].command)
	assert.NotContains(t, f.fires, "Ctrl+Alt+G")

	Stop()
	assert.True(t, f.hookEnded)
	assert.Equal(t, []string{"Ctrl+Alt+E"}, f.released)
}

func TestListenRejectsInvalidBindingBeforeClaiming(t *testing.T) {
	f := stubRegistration(t)
	err := Listen(map[command.Command]string{
		command.Enhance:    "Ctrl+Alt+E",
		command.FixGrammar: "Ctrl+Banana",
	}, func(command.Command) {})
	require.Error(t, err)
	assert.Empty(t, f.fires)
	assert.Nil(t, f.passive)

	assert.Error(t, Listen(nil, func(command.Command) {}))
}
