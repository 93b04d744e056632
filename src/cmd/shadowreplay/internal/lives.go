package internal

import (
	_ "github.com/bililive-go/shadowreplay/src/live/bilibili"
	_ "github.com/bililive-go/shadowreplay/src/live/douyin"
	_ "github.com/bililive-go/shadowreplay/src/live/huya"
	_ "github.com/bililive-go/shadowreplay/src/live/youtube"
)
