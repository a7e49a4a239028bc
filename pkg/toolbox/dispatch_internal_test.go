package toolbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/xpctoolbox/pkg/servicename"
	"github.com/f0mster/xpctoolbox/pkg/xpc"
)

type calls struct {
	systemSession, appSession, systemListener, appListener int
}

func stubConstructors(t *testing.T, err error) *calls {
	c := &calls{}
	oldSS, oldAS, oldSL, oldAL := newSystemSession, newAppSession, newSystemListener, newAppListener
	t.Cleanup(func() {
		newSystemSession, newAppSession, newSystemListener, newAppListener = oldSS, oldAS, oldSL, oldAL
	})
	newSystemSession = func(name servicename.SystemServiceName, cfg xpc.SessionConfig) (*xpc.Session, error) {
		c.systemSession++
		return nil, err
	}
	newAppSession = func(name servicename.AppServiceName, cfg xpc.SessionConfig) (*xpc.Session, error) {
		c.appSession++
		return nil, err
	}
	newSystemListener = func(name servicename.SystemServiceName, cfg xpc.ListenerConfig) (*xpc.Listener, error) {
		c.systemListener++
		return nil, err
	}
	newAppListener = func(name servicename.AppServiceName, cfg xpc.ListenerConfig) (*xpc.Listener, error) {
		c.appListener++
		return nil, err
	}
	return c
}

func TestNewSession_Dispatch(t *testing.T) {
	c := stubConstructors(t, nil)

	_, err := NewSession(servicename.NewSystemServiceName("a"), xpc.SessionConfig{})
	require.NoError(t, err)
	require.Equal(t, calls{systemSession: 1}, *c)

	_, err = NewSession(servicename.NewAppServiceName("a"), xpc.SessionConfig{})
	require.NoError(t, err)
	require.Equal(t, calls{systemSession: 1, appSession: 1}, *c)
}

func TestNewListener_Dispatch(t *testing.T) {
	c := stubConstructors(t, nil)

	_, err := NewListener(servicename.NewAppServiceName("a"), xpc.ListenerConfig{})
	require.NoError(t, err)
	require.Equal(t, calls{appListener: 1}, *c)

	_, err = NewListener(servicename.NewSystemServiceName("a"), xpc.ListenerConfig{})
	require.NoError(t, err)
	require.Equal(t, calls{appListener: 1, systemListener: 1}, *c)
}

func TestDispatch_ForwardsConstructorError(t *testing.T) {
	want := errors.New("constructor failed")
	stubConstructors(t, want)

	_, err := NewSession(servicename.NewSystemServiceName("a"), xpc.SessionConfig{})
	require.Same(t, want, err)
	_, err = NewListener(servicename.NewAppServiceName("a"), xpc.ListenerConfig{})
	require.Same(t, want, err)
}

type customName struct{}

func (customName) RawValue() string { return "custom" }

func TestDispatch_UnexpectedName(t *testing.T) {
	c := stubConstructors(t, nil)

	s, err := NewSession(customName{}, xpc.SessionConfig{})
	require.Nil(t, s)
	require.ErrorIs(t, err, ErrUnexpectedServiceName)
	var unexpected *UnexpectedServiceNameError
	require.ErrorAs(t, err, &unexpected)
	require.Equal(t, "toolbox.customName", unexpected.Type)

	l, err := NewListener(&customName{}, xpc.ListenerConfig{})
	require.Nil(t, l)
	require.EqualError(t, err, "toolbox: unexpected concrete service name type *toolbox.customName")

	_, err = NewSession(nil, xpc.SessionConfig{})
	require.EqualError(t, err, "toolbox: unexpected concrete service name type <nil>")

	require.Equal(t, calls{}, *c)
}
