package configs

import "gopkg.in/yaml.v3"

// decorateConfigNode 在写回配置文件前给各字段加上注释
func decorateConfigNode(node *yaml.Node) {
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return
	}

	root.HeadComment = `# 这个配置文件内的注释是自动生成的，请不要手动修改。`

	setFieldLineComment(root, "ffmpeg_path", "# 如果此项为空，就自动在环境变量里寻找")
	setFieldLineComment(root, "interval", "# 直播状态检测间隔（秒）")
	setFieldComment(root, "out_put_path", "# 直播缓存根目录，每个直播间一个子目录，每场直播一个会话目录", "")
	setFieldComment(root, "app_data_path", "# 数据库等程序数据目录，为空时使用 out_put_path/.appdata", "")

	if recordNode := findNode(root, "record"); recordNode != nil {
		setFieldComment(recordNode, "retry",
			`# 分片下载失败后的重试策略，等待时间从 initial_backoff 开始翻倍，最大为 max_backoff
# 重试次数用尽后本场录制结束`, "")
		setFieldComment(recordNode, "contiguity_tolerance",
			`# 上一场会话结束后多久之内重新开播仍视为同一场直播
# 超过该时间会开始新的会话`, "")
		setFieldLineComment(recordNode, "metadata_refresh_interval", "# 直播间标题、封面等信息的刷新间隔，最小 1s")
	}

	if clipNode := findNode(root, "clip"); clipNode != nil {
		setFieldLineComment(clipNode, "out_put_path", "# 为空时使用 out_put_path/clips")
		setFieldComment(clipNode, "name_tmpl",
			`# 切片文件名模板，可使用 .Platform .RoomID .LiveID .Title .Start .End 以及 sprig 函数
# https://masterminds.github.io/sprig/`, "")
	}

	setFieldHeadComment(root, "primary_accounts", "# 平台 -> 默认使用的账号 uid，为空时使用该平台最早添加的账号")
	setFieldHeadComment(root, "platforms", "# 平台配置，min_access_interval_sec 为同一平台两次请求之间的最小间隔")

	setFieldHeadComment(root, "sentry", "# Sentry 错误监控配置（用于收集崩溃日志），DSN 通过环境变量 SENTRY_DSN 设置")
}

func findNode(mapNode *yaml.Node, key string) *yaml.Node {
	for i := 0; i < len(mapNode.Content); i += 2 {
		if mapNode.Content[i].Value == key {
			return mapNode.Content[i+1]
		}
	}
	return nil
}

func setFieldComment(mapNode *yaml.Node, key, headComment, lineComment string) {
	for i := 0; i < len(mapNode.Content); i += 2 {
		k := mapNode.Content[i]
		if k.Value == key {
			if headComment != "" {
				k.HeadComment = headComment
			}
			if lineComment != "" {
				k.LineComment = lineComment
			}
			return
		}
	}
}

func setFieldLineComment(mapNode *yaml.Node, key, lineComment string) {
	setFieldComment(mapNode, key, "", lineComment)
}

func setFieldHeadComment(mapNode *yaml.Node, key, headComment string) {
	setFieldComment(mapNode, key, headComment, "")
}
