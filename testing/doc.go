// Package testing provides an in-process stand-in for the Tox network.
//
// A LoopbackNetwork connects any number of SimulatedEngines. Each engine
// implements both protocol.Engine and av.MediaEngine, so a complete client
// (protocol, audio, video and call workers) can run against it without
// sockets or devices:
//
//	network := testing.NewLoopbackNetwork()
//	alice, _ := testing.NewSimulatedEngine(network)
//	bob, _ := testing.NewSimulatedEngine(network)
//
// Friend requests are sealed to the recipient's public key and carry the
// nospam of the address they were sent to. Accepting a request runs a
// Noise IK handshake; messages between friends are encrypted with the
// resulting session. File transfers move real files on disk, calls carry
// raw PCM and YUV frames, and conferences are shared by every engine on
// the network.
//
// SimulatedAudio and SimulatedCamera implement the device interfaces of
// package av with a sine tone and a moving gradient.
//
// # Delivery Logs
//
// Every packet handed to the network is recorded as a DeliveryRecord with
// its kind, endpoints, size and outcome. Use DeliveryLog to inspect the
// log and ClearDeliveryLog to reset it between test phases. Media frames
// are not logged.
package testing
