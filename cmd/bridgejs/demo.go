package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/session"
)

// demoScript exercises the sample objects and the built-ins.
const demoScript = `adb.info("this is an adb message", " from the bridge");

var c = getJSCrypto("myTestKey");
adb.info("after open: ", c.open(c.seal("myTestKey: This a JS Message")));

myobject.doLog("This is a JS String");
adb.info(myobject.getMessage());
var home = myobject.getMyHome();
home.printRect(0, 0, 512, 512);
myactivity.getTitle();
`

// MyHome is returned by MyObject.GetMyHome.
type MyHome struct {
	log *zap.Logger
}

func (h *MyHome) ScriptMethods() []string {
	return []string{"PrintRect", "GetMessage"}
}

func (h *MyHome) PrintRect(left, top, right, bottom int32) {
	h.log.Info("printRect",
		zap.Int32("left", left),
		zap.Int32("top", top),
		zap.Int32("right", right),
		zap.Int32("bottom", bottom))
}

func (h *MyHome) GetMessage() string {
	return "Message from MyHome"
}

// MyObject exposes only the methods it lists.
type MyObject struct {
	log  *zap.Logger
	home *MyHome
}

func (o *MyObject) ScriptMethods() []string {
	return []string{"DoLog", "GetMessage", "GetMyHome"}
}

func (o *MyObject) DoLog(msg string) {
	o.log.Info("doLog", zap.String("msg", msg))
}

func (o *MyObject) GetMessage() string {
	return "Hello from MyObject"
}

func (o *MyObject) GetMyHome() *MyHome {
	return o.home
}

// Secret is hidden from scripts by the Annotated capability.
func (o *MyObject) Secret() string {
	return "not for scripts"
}

// MyActivity stands in for an application screen.
type MyActivity struct {
	title string
	shown int
}

func (a *MyActivity) GetTitle() string {
	return a.title
}

func (a *MyActivity) SetTitle(title string) {
	a.title = title
}

func (a *MyActivity) Show() string {
	a.shown++
	return fmt.Sprintf("%s shown %d time(s)", a.title, a.shown)
}

var (
	demoObject   *MyObject
	demoActivity *MyActivity
)

func injectDemo(s *session.Session, log *zap.Logger) error {
	demoObject = &MyObject{
		log:  log.Named("myobject"),
		home: &MyHome{log: log.Named("myhome")},
	}
	demoActivity = &MyActivity{title: "MainActivity"}

	// The package-level vars keep the weakly held objects alive.
	if _, err := s.InjectObject("myobject", host.NewWeakHandle(demoObject, host.Annotated)); err != nil {
		return err
	}
	if _, err := s.InjectObject("myactivity", host.NewWeakHandle(demoActivity, host.All)); err != nil {
		return err
	}
	return nil
}
