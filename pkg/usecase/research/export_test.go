package research

var (
	CommaForTest       = comma
	ClipForTest        = clip
	NewsContextForTest = newsContext
)
