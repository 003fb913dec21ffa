package chat

const DefaultWelcome = "你好，这里是USTC-Assistant！"

// Preset 界面预设，来自 yaml 文件
type Preset struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Welcome     string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	// map center in [lat, lon]
	Center LatLng `json:"center,omitempty" yaml:"center,omitempty"`
}

// WelcomeText returns the markdown of the welcome message
func (p *Preset) WelcomeText() string {
	if p == nil || len(p.Welcome) == 0 {
		return DefaultWelcome
	}
	return p.Welcome
}

// MapCenter 默认中心点为中科大东区
func (p *Preset) MapCenter() LatLng {
	if p == nil || p.Center == (LatLng{}) {
		return LatLng{31.8427, 117.2544}
	}
	return p.Center
}
