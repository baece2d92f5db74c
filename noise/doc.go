// Package noise wraps the Noise IK handshake of github.com/flynn/noise.
//
// Two peers that know each other's Tox ID run the handshake once per
// friendship and then exchange chat messages through a [Session]:
//
//	initiator, _ := noise.NewIKHandshake(myKeys, friendPublicKey[:], noise.Initiator)
//	first, _, _ := initiator.WriteMessage(nil, nil)
//	// send first, receive second
//	initiator.ReadMessage(second)
//	session, _ := noise.NewSession(initiator)
//	sealed, _ := session.Encrypt([]byte("hello"))
//
// The cipher suite is Curve25519, ChaCha20-Poly1305 and SHA-256. Message
// sizes are bounded by the limits package.
package noise
