// Package term is the terminal client of the assistant.
package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/assistant"
	"github.com/liut/campus-assistant/pkg/services/markup"
)

func logger() *zap.SugaredLogger {
	return zap.S()
}

var quitWords = map[string]bool{"exit": true, "quit": true, "退出": true}

// Chat reads questions line by line and prints the replies.
type Chat struct {
	sess *assistant.Session
	tr   markup.Renderer
	in   io.Reader
	out  io.Writer

	you  func(a ...any) string
	bot  func(a ...any) string
	warn func(a ...any) string
	dim  func(a ...any) string
}

// New returns a chat on the session, tr renders Markdown for the terminal.
func New(sess *assistant.Session, tr markup.Renderer, in io.Reader, out io.Writer) *Chat {
	return &Chat{
		sess: sess,
		tr:   tr,
		in:   in,
		out:  out,
		you:  color.New(color.FgGreen, color.Bold).SprintFunc(),
		bot:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		warn: color.New(color.FgRed).SprintFunc(),
		dim:  color.New(color.Faint).SprintFunc(),
	}
}

// Run restores the recent history then loops until EOF, a quit word or ctx done.
func (c *Chat) Run(ctx context.Context, title string) error {
	if len(title) == 0 {
		title = "USTC-Assistant"
	}
	fmt.Fprintln(c.out, c.bot("🎓 "+title))
	fmt.Fprintln(c.out, c.dim("输入问题后回车，/help 查看命令，exit 退出"))
	fmt.Fprintln(c.out)
	c.printEntries(c.sess.Restore(ctx))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, c.you("你: "))
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		cmd := normalize(line)
		if quitWords[cmd] {
			break
		}
		if strings.HasPrefix(cmd, "/") {
			c.command(ctx, cmd)
			continue
		}

		_, err := c.sess.Submit(ctx, line, c.observe)
		if errors.Is(err, assistant.ErrBusy) {
			fmt.Fprintln(c.out, c.warn("上一个问题还在处理中"))
		}
	}
	fmt.Fprintln(c.out)
	return scanner.Err()
}

// normalize folds full-width letters and lowers the case for command matching
func normalize(s string) string {
	return strings.ToLower(width.Fold.String(s))
}

func (c *Chat) command(ctx context.Context, cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/clear":
		entries, err := c.sess.Clear(ctx)
		if err != nil {
			fmt.Fprintln(c.out, c.warn(err.Error()))
		}
		fmt.Fprintln(c.out, c.dim("聊天记录已清空"))
		c.printEntries(entries)
	case "/mode":
		mode, ok := parseMode(arg)
		if !ok {
			fmt.Fprintln(c.out, c.warn("用法: /mode walking|driving"))
			return
		}
		if err := c.sess.SwitchTravelMode(ctx, mode); err != nil {
			fmt.Fprintln(c.out, c.warn(err.Error()))
			return
		}
		fmt.Fprintln(c.out, c.dim("导航模式: "+mode.Label()))
	case "/history":
		c.printEntries(c.sess.Entries())
	case "/help":
		fmt.Fprintln(c.out, "/clear            清空聊天记录")
		fmt.Fprintln(c.out, "/mode walking|driving  切换导航模式")
		fmt.Fprintln(c.out, "/history          显示聊天记录")
		fmt.Fprintln(c.out, "exit              退出")
	default:
		fmt.Fprintln(c.out, c.warn("未知命令 "+name))
	}
}

func parseMode(s string) (chat.TravelMode, bool) {
	switch s {
	case "walking", "walk", "步行":
		return chat.TravelWalking, true
	case "driving", "drive", "car", "驾车":
		return chat.TravelDriving, true
	}
	return "", false
}

func (c *Chat) observe(ev assistant.Event) {
	switch ev.Type {
	case assistant.EventLoader:
		fmt.Fprintln(c.out, c.dim("思考中..."))
	case assistant.EventEntry:
		if ev.Entry.Role != chat.RoleUser {
			c.printEntry(ev.Entry)
		}
	}
}

func (c *Chat) printEntries(entries chat.Entries) {
	for _, e := range entries {
		c.printEntry(e)
	}
}

func (c *Chat) printEntry(e chat.Entry) {
	switch {
	case e.Role == chat.RoleUser:
		fmt.Fprintln(c.out, c.you("你: ")+e.Body)
	case e.Kind == chat.EntryMarkup:
		fmt.Fprint(c.out, c.bot("助手: "))
		fmt.Fprintln(c.out, c.renderMarkup(e.Body))
	case strings.Contains(e.Class, "error"):
		fmt.Fprintln(c.out, c.bot("助手: ")+c.warn(e.Body))
	default:
		fmt.Fprintln(c.out, c.bot("助手: ")+e.Body)
	}
}

// renderMarkup turns stored html back to Markdown for the terminal renderer
func (c *Chat) renderMarkup(html string) string {
	text, err := markup.ToMarkdown(html)
	if err != nil {
		logger().Infow("html to markdown fail", "err", err)
		return html
	}
	if c.tr == nil {
		return text
	}
	out, err := c.tr.Render(text)
	if err != nil {
		logger().Infow("terminal render fail", "err", err)
		return text
	}
	return strings.TrimRight(out, "\n")
}
