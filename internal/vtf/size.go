package vtf

// ComputeBlockSize returns the byte size of one width x height image in
// format f. Block formats pad each dimension up to a whole 4x4 block.
func ComputeBlockSize(width, height int, f ImageFormat) int {
	if bb := blockBytes(f); bb > 0 {
		if width > 0 && width < 4 {
			width = 4
		}
		if height > 0 && height < 4 {
			height = 4
		}
		return ((width + 3) / 4) * ((height + 3) / 4) * bb
	}
	return width * height * bytesPerPixel(f)
}

// ComputeMipChainSize returns the byte size of mipCount levels of frames
// frames, halving both dimensions per level down to 1.
func ComputeMipChainSize(width, height, mipCount, frames int, f ImageFormat) int {
	total := 0
	for i := 0; i < mipCount; i++ {
		total += ComputeBlockSize(width, height, f)
		width = mipDimension(width, 1)
		height = mipDimension(height, 1)
	}
	return total * frames
}

// mipDimension returns base halved level times, never below 1.
func mipDimension(base, level int) int {
	result := base >> level
	if result < 1 {
		return 1
	}
	return result
}
