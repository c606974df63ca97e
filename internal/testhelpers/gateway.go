package testhelpers

import (
	"context"
	"errors"

	"github.com/poofware/fleet-service/internal/utils/traccar"
)

/* ───────────── recording gateway ───────────── */

type GatewayCall struct {
	Op       string
	RemoteID int64
	Device   traccar.Device
	Auth     string
}

// FakeGateway records every call. FailRegisterAt fails the n-th register
// call (1-based); FailUpdate and FailDelete fail every call of that kind.
type FakeGateway struct {
	Calls          []GatewayCall
	NextRemoteID   int64
	RegisterCount  int
	FailRegisterAt int
	FailUpdate     bool
	FailDelete     bool
}

var ErrRemoteDown = errors.New("remote down")

func (g *FakeGateway) RegisterDevice(ctx context.Context, authHeader string, d traccar.Device) (int64, error) {
	g.RegisterCount++
	g.Calls = append(g.Calls, GatewayCall{Op: traccar.OpRegister, Device: d, Auth: authHeader})
	if g.FailRegisterAt != 0 && g.RegisterCount == g.FailRegisterAt {
		return 0, &traccar.Error{Op: traccar.OpRegister, StatusCode: 500, Err: ErrRemoteDown}
	}
	g.NextRemoteID += 100
	return g.NextRemoteID, nil
}

func (g *FakeGateway) UpdateDevice(ctx context.Context, authHeader string, remoteID int64, d traccar.Device) (int64, error) {
	g.Calls = append(g.Calls, GatewayCall{Op: traccar.OpUpdate, RemoteID: remoteID, Device: d, Auth: authHeader})
	if g.FailUpdate {
		return 0, &traccar.Error{Op: traccar.OpUpdate, StatusCode: 500, Err: ErrRemoteDown}
	}
	return remoteID, nil
}

func (g *FakeGateway) DeleteDevice(ctx context.Context, authHeader string, remoteID int64) error {
	g.Calls = append(g.Calls, GatewayCall{Op: traccar.OpDelete, RemoteID: remoteID, Auth: authHeader})
	if g.FailDelete {
		return &traccar.Error{Op: traccar.OpDelete, StatusCode: 500, Err: ErrRemoteDown}
	}
	return nil
}

func (g *FakeGateway) Count(op string) int {
	n := 0
	for _, c := range g.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}
