package tests

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/status"

	"github.com/f0mster/xpctoolbox/pkg/rpc"
)

type testData struct {
	NameSpace string
	Arguments string
	Response  string
	Error     bool
}

func generateRandomString() string {
	return uuid.NewString()
}

// Rpc_Call_Test fires many concurrent requests at several namespaces and
// checks every reply lands at the caller that sent the request.
func Rpc_Call_Test(r rpc.RPC, t *testing.T) {
	mu := sync.Mutex{}
	datas := map[string]map[string]testData{}
	wg := sync.WaitGroup{}
	cancels := []func(){}
	defer func() {
		for _, c := range cancels {
			c()
		}
	}()
	for i := 0; i < 10; i++ {
		ns := generateRandomString()
		mu.Lock()
		datas[ns] = map[string]testData{}
		mu.Unlock()
		for j := 0; j < 10; j++ {
			cancel, err := r.Listen(ns, func(arguments []byte, respond func([]byte, error)) {
				mu.Lock()
				td, ok := datas[ns][string(arguments)]
				mu.Unlock()
				if !ok {
					respond(nil, fmt.Errorf("unknown request %q", arguments))
					return
				}
				if td.Error {
					respond(nil, fmt.Errorf("%s", td.Response))
					return
				}
				respond([]byte(td.Response), nil)
			})
			require.NoError(t, err)
			cancels = append(cancels, cancel)
		}
		tds := make([]testData, 0, 200)
		mu.Lock()
		for j := 0; j < 200; j++ {
			td := testData{
				NameSpace: ns,
				Arguments: generateRandomString(),
				Response:  generateRandomString(),
				Error:     j%3 == 0,
			}
			datas[ns][td.Arguments] = td
			tds = append(tds, td)
		}
		mu.Unlock()
		for _, td := range tds {
			td := td
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := make(chan struct {
					resp []byte
					err  error
				}, 1)
				err := r.Call(td.NameSpace, []byte(td.Arguments), func(resp []byte, err error) {
					res <- struct {
						resp []byte
						err  error
					}{resp, err}
				})
				require.NoError(t, err)
				var got struct {
					resp []byte
					err  error
				}
				select {
				case got = <-res:
				case <-time.After(30 * time.Second):
					t.Error("no reply", td)
					return
				}
				if td.Error {
					require.Error(t, got.err, td)
					require.Equal(t, td.Response, status.Convert(got.err).Message(), td)
					require.Empty(t, got.resp)
				} else {
					require.NoError(t, got.err)
					require.Equal(t, td.Response, string(got.resp))
				}
				mu.Lock()
				delete(datas[ns], td.Arguments)
				if len(datas[ns]) == 0 {
					delete(datas, ns)
				}
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	require.Equal(t, 0, len(datas), "something left")
}

// Rpc_Order_Test checks requests issued one after another reach a single
// listener in issue order.
func Rpc_Order_Test(r rpc.RPC, t *testing.T) {
	ns := generateRandomString()
	mu := sync.Mutex{}
	got := make([]string, 0, 100)
	cancel, err := r.Listen(ns, func(arguments []byte, respond func([]byte, error)) {
		mu.Lock()
		got = append(got, string(arguments))
		mu.Unlock()
		respond(nil, nil)
	})
	require.NoError(t, err)
	defer cancel()

	want := make([]string, 0, 100)
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		arg := fmt.Sprintf("%03d", i)
		want = append(want, arg)
		wg.Add(1)
		require.NoError(t, r.Call(ns, []byte(arg), func([]byte, error) { wg.Done() }))
	}
	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, want, got)
}
