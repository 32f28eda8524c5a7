package audio

// FormatConverter converts PCM sample buffers to a target format. Conversion
// order: resample first, then channel convert (avoids resampling stereo when
// the target is mono).
type FormatConverter struct {
	Target Format
}

// Convert converts pcm (interleaved int16 samples in the from format) to the
// target format. If the source already matches the target, pcm is returned
// unchanged with zero allocation.
func (c *FormatConverter) Convert(pcm []int16, from Format) []int16 {
	if from.SampleRate == c.Target.SampleRate && from.Channels == c.Target.Channels {
		return pcm
	}

	if from.SampleRate != c.Target.SampleRate {
		if from.Channels == 1 {
			pcm = ResampleMono(pcm, from.SampleRate, c.Target.SampleRate)
		} else {
			pcm = ResampleStereo(pcm, from.SampleRate, c.Target.SampleRate)
		}
	}

	switch {
	case from.Channels == 1 && c.Target.Channels == 2:
		pcm = MonoToStereo(pcm)
	case from.Channels == 2 && c.Target.Channels == 1:
		pcm = StereoToMono(pcm)
	}
	return pcm
}

// MonoToStereo duplicates each mono sample into a stereo L+R pair.
func MonoToStereo(pcm []int16) []int16 {
	out := make([]int16, len(pcm)*2)
	for i, s := range pcm {
		out[i*2] = s
		out[i*2+1] = s
	}
	return out
}

// StereoToMono averages L+R per stereo frame. Uses int32 arithmetic to
// prevent overflow and clamps to the int16 range.
func StereoToMono(pcm []int16) []int16 {
	frames := len(pcm) / 2
	out := make([]int16, frames)
	for i := range frames {
		avg := (int32(pcm[i*2]) + int32(pcm[i*2+1])) / 2
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}
		out[i] = int16(avg)
	}
	return out
}

// ResampleMono resamples mono PCM from srcRate to dstRate using linear
// interpolation. If srcRate == dstRate the input is returned unchanged.
func ResampleMono(pcm []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) == 0 {
		return pcm
	}
	dstSamples := int(int64(len(pcm)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]int16, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := pcm[srcIdx]
		s1 := s0
		if srcIdx+1 < len(pcm) {
			s1 = pcm[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// ResampleStereo resamples interleaved stereo PCM from srcRate to dstRate
// using linear interpolation per channel.
func ResampleStereo(pcm []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcFrames := len(pcm) / 2
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}

	out := make([]int16, dstFrames*2)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstFrames {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		l0, r0 := pcm[srcIdx*2], pcm[srcIdx*2+1]
		l1, r1 := l0, r0
		if srcIdx+1 < srcFrames {
			l1, r1 = pcm[(srcIdx+1)*2], pcm[(srcIdx+1)*2+1]
		}
		out[i*2] = int16(float64(l0)*(1-frac) + float64(l1)*frac)
		out[i*2+1] = int16(float64(r0)*(1-frac) + float64(r1)*frac)
	}
	return out
}
