// Package resampler converts 16-bit PCM between sample rates and channel
// layouts.
//
// Audio devices rarely run at the 24 kHz mono rate the realtime service
// speaks, so capture goes through a Reader and playback through a Writer:
//
//	src := resampler.Format{SampleRate: 48000, Stereo: true}
//	r, err := resampler.NewReader(mic, src, resampler.FromPCM(pcm.Wire))
//	if err != nil {
//	    return err
//	}
//	io.Copy(out, r)
//
// Rate conversion uses the pure Go go-audio-resampling package; channel
// conversion averages (stereo to mono) or duplicates (mono to stereo)
// samples.
package resampler
