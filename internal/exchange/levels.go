package exchange

import (
	"exstream/pkg/exception"
	"exstream/pkg/orderbook"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// ParseLevels converts [price, size, ...] string tuples. Extra columns are ignored.
func ParseLevels(raw [][]string) ([]orderbook.Level, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	levels := make([]orderbook.Level, 0, len(raw))
	for _, item := range raw {
		if len(item) < 2 {
			return nil, errors.Wrapf(exception.ErrDecodePayload, "level: %v", item)
		}
		price, err := decimal.NewFromString(item[0])
		if err != nil {
			return nil, errors.Wrapf(err, "parse price: %s", item[0])
		}
		size, err := decimal.NewFromString(item[1])
		if err != nil {
			return nil, errors.Wrapf(err, "parse size: %s", item[1])
		}
		levels = append(levels, orderbook.Level{Price: price, Size: size})
	}
	return levels, nil
}
