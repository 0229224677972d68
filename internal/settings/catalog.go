package settings

import "strconv"

// Choice is one selectable value with its display label.
type Choice struct {
	Value string `json:"value" example:"2500k"`
	Label string `json:"label" example:"2.5 Mbps"`
}

// Catalog lists the values a settings panel offers.
type Catalog struct {
	Methods       []Choice `json:"methods"`
	VideoBitrates []Choice `json:"video_bitrates"`
	CRFValues     []Choice `json:"crf_values"`
	VideoCodecs   []Choice `json:"video_codecs"`
	AudioBitrates []Choice `json:"audio_bitrates"`
	Resolutions   []Choice `json:"resolutions"`
	Formats       []Choice `json:"formats"`
	Qualities     []Choice `json:"qualities"`
}

var formats = []Choice{
	{Value: string(FormatMP4), Label: "MP4 (.mp4)"},
	{Value: string(FormatMKV), Label: "MKV (.mkv)"},
	{Value: string(FormatAVI), Label: "AVI (.avi)"},
	{Value: string(FormatMOV), Label: "MOV (.mov)"},
	{Value: string(FormatFLV), Label: "FLV (.flv)"},
	{Value: string(FormatWEBM), Label: "WEBM (.webm)"},
}

// GetCatalog returns the option lists.
func GetCatalog() Catalog {
	crf := make([]Choice, 0, 34)
	for v := 18; v <= 51; v++ {
		label := strconv.Itoa(v)
		switch v {
		case 18:
			label += " (Best Quality)"
		case 51:
			label += " (Smallest Size)"
		}
		crf = append(crf, Choice{Value: strconv.Itoa(v), Label: label})
	}

	return Catalog{
		Methods: []Choice{
			{Value: string(MethodBitrate), Label: "Target a max bitrate"},
			{Value: string(MethodPercentage), Label: "Target a quality percentage"},
			{Value: string(MethodFileSize), Label: "Target a file size (MB)"},
			{Value: string(MethodCRF), Label: "Target a video quality (CRF)"},
		},
		VideoBitrates: []Choice{
			{Value: "300k", Label: "300 Kbps"},
			{Value: "1000k", Label: "1 Mbps"},
			{Value: "2500k", Label: "2.5 Mbps"},
			{Value: "5000k", Label: "5 Mbps"},
			{Value: "8000k", Label: "8 Mbps"},
		},
		CRFValues: crf,
		VideoCodecs: []Choice{
			{Value: "libx264", Label: "H.264"},
			{Value: "libx265", Label: "H.265"},
		},
		AudioBitrates: []Choice{
			{Value: "64k", Label: "64 kbps"},
			{Value: "96k", Label: "96 kbps"},
			{Value: "128k", Label: "128 kbps"},
			{Value: "192k", Label: "192 kbps"},
			{Value: "256k", Label: "256 kbps"},
		},
		Resolutions: []Choice{
			{Value: "1920x1080", Label: "1080p (1920)"},
			{Value: "1280x720", Label: "720p (1280)"},
			{Value: "854x480", Label: "480p (854)"},
		},
		Formats: formats,
		Qualities: []Choice{
			{Value: string(QualityHigh), Label: "High"},
			{Value: string(QualityMedium), Label: "Medium"},
			{Value: string(QualityLow), Label: "Low"},
		},
	}
}

// IsKnownFormat reports whether f is one of the supported containers.
func IsKnownFormat(f Format) bool {
	for _, c := range formats {
		if c.Value == string(f) {
			return true
		}
	}
	return false
}
