package enum

// Platform is the exchange a record came from.
type Platform uint8

const (
	_platform_beg Platform = iota
	PlatformBinance
	PlatformOKX
	_platform_end
)

func (p Platform) IsAvailable() bool {
	return p > _platform_beg && p < _platform_end
}

func (p Platform) String() string {
	switch p {
	case PlatformBinance:
		return "binance"
	case PlatformOKX:
		return "okx"
	default:
		return "unknown"
	}
}

// PositionSide long, short, net
type PositionSide uint8

const (
	_position_side_beg PositionSide = iota
	PositionSideLong
	PositionSideShort
	// PositionSideNet is a one-way mode position, its sign gives the direction.
	PositionSideNet
	_position_side_end
)

func (s PositionSide) IsAvailable() bool {
	return s > _position_side_beg && s < _position_side_end
}

func (s PositionSide) String() string {
	switch s {
	case PositionSideLong:
		return "long"
	case PositionSideShort:
		return "short"
	case PositionSideNet:
		return "net"
	default:
		return ""
	}
}

func ParsePositionSide(s string) PositionSide {
	switch s {
	case "long":
		return PositionSideLong
	case "short":
		return PositionSideShort
	case "net":
		return PositionSideNet
	default:
		return _position_side_beg
	}
}
