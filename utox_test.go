package utox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opd-ai/utox"
	"github.com/opd-ai/utox/bus"
	"github.com/opd-ai/utox/config"
	utoxtest "github.com/opd-ai/utox/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, network *utoxtest.LoopbackNetwork) (*utox.Client, *utoxtest.SimulatedAudio) {
	t.Helper()
	engine, err := utoxtest.NewSimulatedEngine(network)
	require.NoError(t, err)
	audio := utoxtest.NewSimulatedAudio()

	options := utox.NewOptions()
	options.Engine = engine
	options.Media = engine
	options.AudioDevices = audio
	options.VideoDevices = utoxtest.NewSimulatedCamera()
	options.VideoWidth, options.VideoHeight = 64, 48
	options.ShutdownTimeout = 2 * time.Second
	options.Settings.RingtoneEnabled = false

	client, err := utox.New(options)
	require.NoError(t, err)
	return client, audio
}

// waitFor takes UI events until one of kind satisfies match.
func waitFor(t *testing.T, c *utox.Client, kind bus.UIEvent, match func(bus.Message[bus.UIEvent]) bool) bus.Message[bus.UIEvent] {
	t.Helper()
	ui := c.Events()
	deadline := time.After(5 * time.Second)
	for {
		for {
			msg, ok := ui.Take()
			if !ok {
				break
			}
			if msg.Kind == kind && (match == nil || match(msg)) {
				return msg
			}
			msg.Release()
		}
		select {
		case <-ui.Ready():
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestNewValidatesCollaborators(t *testing.T) {
	_, err := utox.New(utox.NewOptions())
	assert.ErrorIs(t, err, utox.ErrNoEngine)

	engine, err := utoxtest.NewSimulatedEngine(utoxtest.NewLoopbackNetwork())
	require.NoError(t, err)
	options := utox.NewOptions()
	options.Engine = engine
	_, err = utox.New(options)
	assert.ErrorIs(t, err, utox.ErrNoMedia)
}

func TestNewOptionsDefaults(t *testing.T) {
	options := utox.NewOptions()
	assert.Equal(t, 5*time.Second, options.ShutdownTimeout)
	assert.Equal(t, uint32(config.DefaultVideoFPS), options.Settings.VideoFPS)
	assert.True(t, options.Settings.SendTypingStatus)
}

func TestStartAndKill(t *testing.T) {
	client, _ := newClient(t, utoxtest.NewLoopbackNetwork())
	ctx := context.Background()

	require.NoError(t, client.Start(ctx))
	assert.ErrorIs(t, client.Start(ctx), utox.ErrAlreadyStarted)

	waitFor(t, client, bus.UINewAudioInDevice, nil)
	waitFor(t, client, bus.UINewVideoDevice, nil)

	require.NoError(t, client.Kill())
	require.NoError(t, client.Kill())
	client.Wait()
	waitFor(t, client, bus.UIToxDone, nil)

	assert.ErrorIs(t, client.Start(ctx), utox.ErrKilled)

	stats := client.Stats()
	assert.NotZero(t, stats[bus.DestinationUI].Mailbox.Posted)
	assert.NotZero(t, stats[bus.DestinationAudio].Handled)
}

var errOutputBusy = errors.New("output device busy")

// busyOutput fails to enumerate its outputs a number of times.
type busyOutput struct {
	*utoxtest.SimulatedAudio
	failures int
}

func (b *busyOutput) OutputDevices() ([]string, error) {
	if b.failures > 0 {
		b.failures--
		return nil, errOutputBusy
	}
	return b.SimulatedAudio.OutputDevices()
}

func TestStartRetryAfterInitFailure(t *testing.T) {
	engine, err := utoxtest.NewSimulatedEngine(utoxtest.NewLoopbackNetwork())
	require.NoError(t, err)

	options := utox.NewOptions()
	options.Engine = engine
	options.Media = engine
	options.AudioDevices = &busyOutput{SimulatedAudio: utoxtest.NewSimulatedAudio(), failures: 1}
	options.VideoDevices = utoxtest.NewSimulatedCamera()
	options.ShutdownTimeout = 2 * time.Second
	client, err := utox.New(options)
	require.NoError(t, err)

	err = client.Start(context.Background())
	require.ErrorIs(t, err, errOutputBusy)
	assert.NotErrorIs(t, err, utox.ErrAlreadyStarted)

	require.NoError(t, client.Start(context.Background()))
	assert.ErrorIs(t, client.Start(context.Background()), utox.ErrAlreadyStarted)
	require.NoError(t, client.Kill())
}

func TestKillBeforeStart(t *testing.T) {
	client, _ := newClient(t, utoxtest.NewLoopbackNetwork())
	require.NoError(t, client.Kill())
	assert.ErrorIs(t, client.Start(context.Background()), utox.ErrKilled)
}

func TestCancelledContextStopsWorkers(t *testing.T) {
	client, _ := newClient(t, utoxtest.NewLoopbackNetwork())
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, client.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		client.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers still running after cancel")
	}
}

func TestClientsBefriendAndChat(t *testing.T) {
	network := utoxtest.NewLoopbackNetwork()
	alice, _ := newClient(t, network)
	bob, _ := newClient(t, network)
	ctx := context.Background()
	require.NoError(t, alice.Start(ctx))
	require.NoError(t, bob.Start(ctx))
	defer alice.Kill()
	defer bob.Kill()

	alice.PostToNetwork(bus.ToxFriendNew, 0, 0, bus.FriendAddress{ID: bob.Address(), Message: "hi bob"})

	req := waitFor(t, bob, bus.UIFriendRequest, nil)
	info := req.Payload.(bus.FriendRequestInfo)
	assert.Equal(t, "hi bob", info.Message)
	bob.PostToNetwork(bus.ToxFriendAccept, 0, 0, bus.PublicKey{Key: info.PublicKey})

	online := func(m bus.Message[bus.UIEvent]) bool { return m.Param2 == 1 }
	waitFor(t, alice, bus.UIFriendOnline, online)
	waitFor(t, bob, bus.UIFriendOnline, online)

	alice.PostToNetwork(bus.ToxSendMessage, 0, 0, bus.Text{Value: "hello from alice"})
	msg := waitFor(t, bob, bus.UIFriendMessage, nil)
	assert.Equal(t, "hello from alice", msg.Payload.(bus.Text).Value)
}

func TestCallPlaysRemoteAudio(t *testing.T) {
	network := utoxtest.NewLoopbackNetwork()
	alice, _ := newClient(t, network)
	bob, bobAudio := newClient(t, network)
	ctx := context.Background()
	require.NoError(t, alice.Start(ctx))
	require.NoError(t, bob.Start(ctx))
	defer alice.Kill()
	defer bob.Kill()

	alice.PostToNetwork(bus.ToxFriendNew, 0, 0, bus.FriendAddress{ID: bob.Address(), Message: "call me"})
	req := waitFor(t, bob, bus.UIFriendRequest, nil)
	bob.PostToNetwork(bus.ToxFriendAccept, 0, 0, bus.PublicKey{Key: req.Payload.(bus.FriendRequestInfo).PublicKey})
	online := func(m bus.Message[bus.UIEvent]) bool { return m.Param2 == 1 }
	waitFor(t, alice, bus.UIFriendOnline, online)
	waitFor(t, bob, bus.UIFriendOnline, online)

	alice.PostToNetwork(bus.ToxCallSend, 0, 0, nil)
	waitFor(t, bob, bus.UIFriendAVIncoming, nil)
	bob.PostToNetwork(bus.ToxCallAnswer, 0, 0, nil)
	waitFor(t, alice, bus.UIFriendCallAudioConnected, nil)

	require.Eventually(t, func() bool { return len(bobAudio.Played()) > 0 }, 5*time.Second, 10*time.Millisecond)

	alice.PostToNetwork(bus.ToxCallDisconnect, 0, 0, nil)
	waitFor(t, bob, bus.UIFriendAVDisconnect, nil)
}

func TestSettingsFollowDeviceCommands(t *testing.T) {
	client, _ := newClient(t, utoxtest.NewLoopbackNetwork())

	client.PostToAudio(bus.AudioSetInput, 1, 0, nil)
	client.PostToVideo(bus.VideoPreviewStart, 0, 0, nil)
	snap := client.Settings()
	assert.Equal(t, uint32(1), snap.AudioInputDevice)
	assert.True(t, snap.VideoPreview)

	store := config.NewStore(t.TempDir())
	require.NoError(t, client.SaveSettings(store, config.DefaultSettings()))
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loaded.AV.AudioDeviceIn)
	assert.True(t, loaded.AV.VideoPreview)

	assert.Error(t, client.SaveSettings(nil, nil))
	require.NoError(t, client.Kill())
}
