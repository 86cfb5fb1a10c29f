// Package logging 根据 config.LogConfig 构建 zap logger，支持 JSON 与
// console 编码，文件输出通过 lumberjack 按大小轮转。
package logging
