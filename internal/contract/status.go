package contract

// ProjectStatus 链上项目状态
type ProjectStatus uint8

const (
	StatusListed ProjectStatus = iota
	StatusClosed
	StatusTokenMinted
)

// Label 对外展示的状态标签
func (s ProjectStatus) Label() string {
	switch s {
	case StatusListed:
		return "PROJECT_LISTED"
	case StatusClosed:
		return "PROJECT_CLOSED"
	case StatusTokenMinted:
		return "PROJECT_TOKEN_MINTED"
	default:
		return "PROJECT_UNKNOWN"
	}
}

func (s ProjectStatus) String() string {
	return s.Label()
}
