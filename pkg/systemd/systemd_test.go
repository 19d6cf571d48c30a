package systemd

import (
	"context"
	"errors"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	started []string
	results map[string]string
	states  map[string]string
	closed  bool
}

func (f *fakeConn) StartUnitContext(_ context.Context, name, mode string, ch chan<- string) (int, error) {
	if mode != jobModeReplace {
		return 0, errors.New("unexpected mode")
	}
	res, ok := f.results[name]
	if !ok {
		return 0, errors.New("no such unit")
	}
	f.started = append(f.started, name)
	ch <- res
	return len(f.started), nil
}

func (f *fakeConn) GetUnitPropertyContext(_ context.Context, unit, name string) (*dbus.Property, error) {
	s, ok := f.states[unit]
	if !ok {
		return nil, errors.New("no such unit")
	}
	return &dbus.Property{Name: name, Value: godbus.MakeVariant(s)}, nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNotifier(t *testing.T) {
	var got []string
	n := NewNotifier(func(_ bool, state string) (bool, error) {
		got = append(got, state)
		return true, nil
	})
	n.Status("probing")
	n.Ready("found ConfigDrive")
	assert.Equal(t, []string{"STATUS=probing", "READY=1\nSTATUS=found ConfigDrive"}, got)

	// errors and a missing socket are not fatal
	NewNotifier(func(bool, string) (bool, error) { return false, errors.New("x") }).Ready("ok")
	NewNotifier(func(bool, string) (bool, error) { return false, nil }).Ready("ok")
}

func TestUnitsStart(t *testing.T) {
	conn := &fakeConn{results: map[string]string{"a.service": "done", "b.service": "failed", "c.service": "done"}}
	u := NewUnits(func(context.Context) (UnitConn, error) { return conn, nil })

	err := u.Start(context.Background(), []string{"a.service", "b.service", "missing.service", "c.service"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.service")
	assert.Contains(t, err.Error(), "missing.service")
	assert.Equal(t, []string{"a.service", "b.service", "c.service"}, conn.started)
	assert.True(t, conn.closed)

	require.NoError(t, u.Start(context.Background(), nil))
}

func TestUnitsConnectFailure(t *testing.T) {
	u := NewUnits(func(context.Context) (UnitConn, error) { return nil, errors.New("no bus") })
	assert.Error(t, u.Start(context.Background(), []string{"a.service"}))
	_, err := u.ActiveStates(context.Background(), []string{"a.service"})
	assert.Error(t, err)
}

func TestUnitsActiveStates(t *testing.T) {
	conn := &fakeConn{states: map[string]string{"a.service": "active"}}
	u := NewUnits(func(context.Context) (UnitConn, error) { return conn, nil })

	states, err := u.ActiveStates(context.Background(), []string{"a.service", "b.service"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.service": "active", "b.service": "unknown"}, states)
}
