// Package av implements the three media workers of the client: the audio
// worker, the video worker and the call orchestration ("toxav") worker.
//
// Each worker is a bus.Handler driven by its own bus.Loop. The workers own
// the media collaborators they talk to:
//
//   - AudioWorker owns AudioDevices. It captures one frame per tick while a
//     call, a group call or the preview needs the microphone, sends it to
//     the MediaEngine and loops it back to the speakers during preview.
//     It also plays the generated ringtone.
//   - VideoWorker owns VideoDevices. It reads frames at the configured
//     rate, posts preview frames to the UI and sends call frames to the
//     MediaEngine.
//   - CallWorker iterates the MediaEngine. Received Opus packets are
//     decoded per friend and played; received video frames are posted to
//     the UI as FRIEND_VIDEO_FRAME.
//
// Video frames posted to the UI come from a bus.FramePool; the UI returns
// them by releasing the record.
//
// # Usage
//
//	audio := av.NewAudioWorker(devices, engine, dispatcher, av.NewAudioOptions())
//	if err := audio.Init(ctx); err != nil {
//	    return err
//	}
//	loop := bus.NewLoop[bus.AudioKind]("audio", dispatcher.Audio(), audio)
//	go loop.Run(ctx)
package av
