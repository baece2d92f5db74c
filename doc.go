// Package utox runs the backend of a Tox client: one UI goroutine talking
// to exactly four workers over an asynchronous command/event bus.
//
// The workers are the protocol worker ("tox"), the audio worker, the video
// worker and the call orchestration worker ("toxav"). Commands are posted
// with Client.PostToNetwork, PostToAudio, PostToVideo and
// PostToCallOrchestration; the workers answer with UI events read from
// Client.Events or Client.RunEvents. Every command is a bus.Message record
// with a kind from a closed taxonomy, two numeric parameters and an
// optional typed payload.
//
// # Getting Started
//
// A Client needs a protocol engine, a media engine and the audio and video
// devices. The testing package provides simulated ones:
//
//	network := testing.NewLoopbackNetwork()
//	engine, err := testing.NewSimulatedEngine(network)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	options := utox.NewOptions()
//	options.Engine = engine
//	options.Media = engine
//	options.AudioDevices = testing.NewSimulatedAudio()
//	options.VideoDevices = testing.NewSimulatedCamera()
//
//	client, err := utox.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Kill()
//
//	client.PostToNetwork(bus.ToxSelfSetName, 0, 0, bus.Text{Value: "Alice"})
//
// # Shutdown
//
// Kill posts the kill kind of every worker, in the order video, audio,
// toxav and tox, and waits for each loop to finish its teardown before
// posting the next one. The protocol worker posts TOX_DONE to the UI as its
// last event.
//
// # Settings
//
// The Options carry a config.Snapshot. After start the client posts the
// device selections of the snapshot and starts the audio preview when push
// to talk or preview is enabled. Device and preview commands posted later
// update the snapshot returned by Client.Settings, which SaveSettings
// writes back through a config.Store.
package utox
