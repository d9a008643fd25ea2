package media

import (
	"encoding/binary"
	"path"
	"strings"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".ogg": true, ".mov": true, ".avi": true,
	".wmv": true, ".flv": true, ".mkv": true, ".m4v": true,
}

// ClassifyKind decides PHOTO or VIDEO from the MIME type, falling back to
// the file extension when the MIME type is missing or generic.
func ClassifyKind(fileName, contentType string) Kind {
	if strings.HasPrefix(contentType, "video/") {
		return Video
	}
	if strings.HasPrefix(contentType, "image/") {
		return Photo
	}
	if videoExtensions[strings.ToLower(path.Ext(fileName))] {
		return Video
	}
	return Photo
}

// VideoDuration scans an MP4 for the movie header and returns the duration
// in seconds. Best-effort: anything unparseable yields zero. Only the
// top-level box walk and the mvhd timescale/duration fields are read.
func VideoDuration(data []byte) float64 {
	moov := findBox(data, "moov")
	if moov == nil {
		return 0
	}
	mvhd := findBox(moov, "mvhd")
	if mvhd == nil || len(mvhd) < 1 {
		return 0
	}

	version := mvhd[0]
	switch version {
	case 0:
		// version(1) flags(3) ctime(4) mtime(4) timescale(4) duration(4)
		if len(mvhd) < 20 {
			return 0
		}
		timescale := binary.BigEndian.Uint32(mvhd[12:16])
		duration := binary.BigEndian.Uint32(mvhd[16:20])
		if timescale == 0 {
			return 0
		}
		return float64(duration) / float64(timescale)
	case 1:
		// version(1) flags(3) ctime(8) mtime(8) timescale(4) duration(8)
		if len(mvhd) < 32 {
			return 0
		}
		timescale := binary.BigEndian.Uint32(mvhd[20:24])
		duration := binary.BigEndian.Uint64(mvhd[24:32])
		if timescale == 0 {
			return 0
		}
		return float64(duration) / float64(timescale)
	default:
		return 0
	}
}

// findBox walks sibling boxes in data and returns the payload of the first
// box with the given type.
func findBox(data []byte, boxType string) []byte {
	for len(data) >= 8 {
		size := binary.BigEndian.Uint32(data[0:4])
		name := string(data[4:8])

		headerLen := uint64(8)
		boxSize := uint64(size)
		switch size {
		case 0:
			// box extends to end of data
			boxSize = uint64(len(data))
		case 1:
			if len(data) < 16 {
				return nil
			}
			boxSize = binary.BigEndian.Uint64(data[8:16])
			headerLen = 16
		}

		if boxSize < headerLen || boxSize > uint64(len(data)) {
			return nil
		}
		if name == boxType {
			return data[headerLen:boxSize]
		}
		data = data[boxSize:]
	}
	return nil
}
