package quranbot

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	humanize "github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/simplesurance/go-ip-anonymizer/ipanonymizer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/toksikk/quranbot/internal/catalog"
	"github.com/toksikk/quranbot/internal/cfg"
	"github.com/toksikk/quranbot/internal/playback"
	"github.com/toksikk/quranbot/internal/util"
)

const (
	sessionName  = "quranbot-session"
	keyUserID    = "discordUserID"
	keyUsername  = "discordUsername"
	keyState     = "state"
	startTimeout = 30 * time.Second
)

//go:embed web/templates/*.html
var templateFS embed.FS

var (
	discordEndpoint = oauth2.Endpoint{
		AuthURL:  "https://discord.com/api/oauth2/authorize",
		TokenURL: "https://discord.com/api/oauth2/token",
	}

	ipAnonymizer = ipanonymizer.NewWithMask(
		net.CIDRMask(16, 32),
		net.CIDRMask(64, 128),
	)
)

// identifyFunc resolves the discord user behind an oauth token
type identifyFunc func(ctx context.Context, token *oauth2.Token) (*discordgo.User, error)

type webServer struct {
	conf     *cfg.Config
	oauth    *oauth2.Config
	store    *sessions.CookieStore
	tmpl     *template.Template
	registry *playback.Registry
	state    *discordgo.State
	identify identifyFunc
	server   *http.Server
}

func newWebServer(conf *cfg.Config, registry *playback.Registry, state *discordgo.State) *webServer {
	secret := conf.Web.SessionSecret
	if secret == "" {
		secret = conf.Web.Oauth.ClientSecret
	}
	w := &webServer{
		conf: conf,
		oauth: &oauth2.Config{
			ClientID:     conf.Web.Oauth.ClientID,
			ClientSecret: conf.Web.Oauth.ClientSecret,
			RedirectURL:  conf.Web.Oauth.RedirectURI + "/discordCallback",
			Scopes:       []string{"identify", "guilds"},
			Endpoint:     discordEndpoint,
		},
		store:    sessions.NewCookieStore([]byte(secret)),
		tmpl:     template.Must(template.ParseFS(templateFS, "web/templates/*.html")),
		registry: registry,
		state:    state,
		identify: discordIdentify,
	}
	w.server = &http.Server{
		Addr:              ":" + strconv.Itoa(conf.Web.Port),
		Handler:           w.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return w
}

func (w *webServer) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", w.handleMain).Methods(http.MethodGet)
	r.HandleFunc("/logout", w.handleLogout)
	r.HandleFunc("/discordLogin", w.handleDiscordLogin)
	r.HandleFunc("/discordCallback", w.handleDiscordCallback)
	r.HandleFunc("/play", w.handlePlay).Methods(http.MethodPost)
	r.HandleFunc("/stop", w.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/api/chapters", w.handleChapters).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", w.handleSessions).Methods(http.MethodGet)
	r.Use(logWebRequests)
	return r
}

func (w *webServer) start() {
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithField("error", err).Error("could not start webserver")
	}
}

func (w *webServer) shutdown(ctx context.Context) {
	if err := w.server.Shutdown(ctx); err != nil {
		log.WithField("error", err).Warning("webserver shutdown failed")
	}
}

func discordIdentify(_ context.Context, token *oauth2.Token) (*discordgo.User, error) {
	dg, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return nil, errors.Wrap(err, "error while creating discord session")
	}
	defer dg.Close()
	user, err := dg.User("@me")
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch user")
	}
	return user, nil
}

// userID of the logged in user, empty if not logged in
func (w *webServer) userID(r *http.Request) string {
	session, err := w.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[keyUserID].(string)
	return id
}

func (w *webServer) handleMain(rw http.ResponseWriter, r *http.Request) {
	session, _ := w.store.Get(r, sessionName)
	username, _ := session.Values[keyUsername].(string)
	if username == "" {
		if err := w.tmpl.ExecuteTemplate(rw, "home", map[string]interface{}{"Version": Version}); err != nil {
			log.WithField("error", err).Error("unable to execute template")
		}
		return
	}

	page := panelPage{
		Username: username,
		Chapters: chapterItems(),
		Sessions: w.sessionItems(),
		Version:  Version,
	}
	for _, rec := range catalog.Reciters() {
		page.Reciters = append(page.Reciters, optionItem{Key: rec.Key, Name: rec.Name, Selected: rec.Key == w.conf.Playback.DefaultReciter})
	}
	for _, t := range catalog.Translations() {
		page.Translations = append(page.Translations, optionItem{Key: t.Key, Name: t.Name, Selected: t.Key == w.conf.Playback.DefaultTranslation})
	}
	if err := w.tmpl.ExecuteTemplate(rw, "internal", page); err != nil {
		log.WithField("error", err).Error("unable to execute template")
	}
}

func (w *webServer) handleLogout(rw http.ResponseWriter, r *http.Request) {
	http.SetCookie(rw, &http.Cookie{
		Name:   sessionName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(rw, r, "/", http.StatusFound)
}

func (w *webServer) handleDiscordLogin(rw http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.WithField("error", err).Error("unable to read random state")
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	state := base64.URLEncoding.EncodeToString(b)

	session, _ := w.store.Get(r, sessionName)
	session.Values[keyState] = state
	if err := session.Save(r, rw); err != nil {
		log.WithField("error", err).Error("unable to save session")
	}
	http.Redirect(rw, r, w.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (w *webServer) handleDiscordCallback(rw http.ResponseWriter, r *http.Request) {
	session, err := w.store.Get(r, sessionName)
	if err != nil {
		http.Error(rw, "aborted", http.StatusBadRequest)
		return
	}
	expected, _ := session.Values[keyState].(string)
	if expected == "" || r.URL.Query().Get("state") != expected {
		http.Error(rw, "no state match; possible csrf OR cookies not enabled", http.StatusBadRequest)
		return
	}

	token, err := w.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.WithField("error", err).Warning("code exchange failed")
		http.Error(rw, "code exchange failed", http.StatusBadGateway)
		return
	}
	if !token.Valid() {
		http.Error(rw, "retrieved invalid token", http.StatusBadGateway)
		return
	}

	user, err := w.identify(r.Context(), token)
	if err != nil {
		log.WithField("error", err).Warning("could not identify user")
		http.Error(rw, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	delete(session.Values, keyState)
	session.Values[keyUserID] = user.ID
	session.Values[keyUsername] = user.Username
	if err := session.Save(r, rw); err != nil {
		log.WithField("error", err).Error("unable to save session")
	}
	http.Redirect(rw, r, "/", http.StatusTemporaryRedirect)
}

func (w *webServer) handlePlay(rw http.ResponseWriter, r *http.Request) {
	uid := w.userID(r)
	if uid == "" {
		writeJSON(rw, http.StatusUnauthorized, playResult{Status: "login required"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(rw, http.StatusBadRequest, playResult{Status: "invalid form"})
		return
	}

	chapter, err := strconv.Atoi(r.FormValue("chapter"))
	if err != nil || chapter < 0 || chapter > catalog.ChapterCount {
		writeJSON(rw, http.StatusBadRequest, playResult{Status: "Surah number must be between 0 and 114."})
		return
	}
	selection := playback.NewSelection(chapter, formOr(r, "reciter", w.conf.Playback.DefaultReciter), formOr(r, "translation", w.conf.Playback.DefaultTranslation))
	if r.FormValue("start") != "" || r.FormValue("end") != "" {
		start, errStart := strconv.Atoi(r.FormValue("start"))
		end, errEnd := 0, error(nil)
		if r.FormValue("end") != "" {
			end, errEnd = strconv.Atoi(r.FormValue("end"))
			if errEnd == nil && end == 0 {
				errEnd = playback.ErrInvalidRange
			}
		}
		if errStart != nil || errEnd != nil {
			writeJSON(rw, http.StatusBadRequest, playResult{Status: "Please enter valid integers."})
			return
		}
		if err := selection.SetRange(start, end); err != nil {
			writeJSON(rw, http.StatusBadRequest, playResult{Status: "Invalid range."})
			return
		}
	}

	guildID, channelID := util.FindUserInVoice(w.state, uid)
	if channelID == "" {
		writeJSON(rw, http.StatusConflict, playResult{Status: "You need to join a voice channel first!"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	sess := w.registry.Session(guildID)
	if err := sess.Start(ctx, playback.StartRequest{ChannelID: channelID, Selection: selection}); err != nil {
		log.WithFields(log.Fields{
			"guild": guildID,
			"error": err,
		}).Warning("web playback start failed")
		writeJSON(rw, http.StatusInternalServerError, playResult{Status: "An error occurred: " + err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, playResult{
		Status:  "playing",
		Guild:   guildID,
		Session: sess.ID(),
		Mode:    sess.Mode().String(),
	})
}

func (w *webServer) handleStop(rw http.ResponseWriter, r *http.Request) {
	uid := w.userID(r)
	if uid == "" {
		writeJSON(rw, http.StatusUnauthorized, playResult{Status: "login required"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(rw, http.StatusBadRequest, playResult{Status: "invalid form"})
		return
	}
	guildID := r.FormValue("guild")
	switch {
	case guildID == "":
		guildID, _ = util.FindUserInVoice(w.state, uid)
	case !w.memberOf(guildID, uid):
		writeJSON(rw, http.StatusForbidden, playResult{Status: "You are not a member of that server."})
		return
	}
	sess, ok := w.registry.Existing(guildID)
	if guildID == "" || !ok {
		writeJSON(rw, http.StatusConflict, playResult{Status: "The bot is not currently in a voice channel."})
		return
	}
	stopped, err := sess.Stop(r.Context())
	switch {
	case err != nil:
		writeJSON(rw, http.StatusInternalServerError, playResult{Status: "An error occurred: " + err.Error()})
	case stopped:
		writeJSON(rw, http.StatusOK, playResult{Status: "Stopped playback and disconnected.", Guild: guildID, Session: sess.ID()})
	default:
		writeJSON(rw, http.StatusConflict, playResult{Status: "The bot is not currently in a voice channel."})
	}
}

// memberOf reports whether userID is a cached member of guildID or sits in
// one of its voice channels
func (w *webServer) memberOf(guildID, userID string) bool {
	if util.VoiceChannelOf(w.state, guildID, userID) != "" {
		return true
	}
	_, err := w.state.Member(guildID, userID)
	return err == nil
}

func (w *webServer) handleChapters(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, chapterItems())
}

func (w *webServer) handleSessions(rw http.ResponseWriter, r *http.Request) {
	if w.userID(r) == "" {
		writeJSON(rw, http.StatusUnauthorized, playResult{Status: "login required"})
		return
	}
	writeJSON(rw, http.StatusOK, w.sessionItems())
}

func (w *webServer) sessionItems() []sessionItem {
	items := []sessionItem{}
	for _, s := range w.registry.Sessions() {
		item := sessionItem{
			ID:          s.ID(),
			GuildID:     s.GuildID(),
			Guild:       util.GetGuildName(w.state, s.GuildID()),
			State:       s.State().String(),
			Position:    s.Position(),
			UnitsPlayed: s.UnitsPlayed(),
		}
		if s.State() == playback.StateStreaming {
			item.Mode = s.Mode().String()
			item.Current = s.Current().String()
			item.Channel = util.GetChannelName(w.state, s.ChannelID())
			item.Started = humanize.Time(s.StartedAt())
		}
		items = append(items, item)
	}
	return items
}

func chapterItems() []chapterItem {
	chapters := catalog.Chapters()
	items := make([]chapterItem, 0, len(chapters))
	for _, c := range chapters {
		items = append(items, chapterItem{Index: c.Index, Name: c.Name, Translated: c.Translated, Verses: c.Verses})
	}
	return items
}

func formOr(r *http.Request, key string, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		log.WithField("error", err).Warning("could not write response")
	}
}

func parseIPPort(s string) (ip net.IP, port, space string, err error) {
	ip = net.ParseIP(s)
	if ip == nil {
		var host string
		host, port, err = net.SplitHostPort(s)
		if err != nil {
			return
		}
		if port != "" {
			if _, err = strconv.ParseUint(port, 10, 16); err != nil {
				return
			}
		}
		ip = net.ParseIP(host)
	}
	if ip == nil {
		err = errors.New("invalid address format")
	} else {
		space = "IPv6"
		if ip4 := ip.To4(); ip4 != nil {
			space = "IPv4"
			ip = ip4
		}
	}
	return
}

// logWebRequests logs every request with an anonymized client address
func logWebRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ip, port, _, err := parseIPPort(r.RemoteAddr)
		if err != nil {
			log.WithField("uri", r.RequestURI).Warning("Error parsing IP address for WebUI Request")
			next.ServeHTTP(rw, r)
			return
		}
		anonIP, err := ipAnonymizer.IPString(ip.String())
		if err != nil {
			log.WithField("uri", r.RequestURI).Warning("Could not anonymize IP address for WebUI Request")
		} else {
			log.WithFields(log.Fields{
				"uri":    r.RequestURI,
				"method": r.Method,
				"from":   net.JoinHostPort(anonIP, port),
			}).Info("WebUI Request")
		}
		next.ServeHTTP(rw, r)
	})
}
