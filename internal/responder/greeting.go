package responder

import (
	"strings"
)

const (
	defaultBotName       = "the bot"
	defaultWorkspaceName = "our workspace"
)

// greetings maps a whole normalized message to a canned reply.
// {bot} and {workspace} are substituted at reply time.
var greetings = map[string]string{
	// hellos
	"hi":              "👋 Hi there! I'm {bot} from {workspace}. How can I help?",
	"hii":             "👋 Hii! {bot} here. What can I do for you?",
	"hello":           "👋 Hello! You're chatting with {bot} from {workspace}.",
	"hey":             "🙌 Hey! {bot} here, ready when you are.",
	"hey there":       "😊 Hey there! Ask me anything about {workspace}.",
	"hello there":     "👋 Hello there! {bot} at your service.",
	"hiya":            "🤗 Hiya! What brings you to {workspace} today?",
	"yo":              "✌️ Yo! {bot} from {workspace} here.",
	"sup":             "😎 Not much, just waiting to help. What's up with you?",
	"what's up":       "😄 All good here at {workspace}! What can I help with?",
	"whats up":        "😄 All good here at {workspace}! What can I help with?",
	"wassup":          "😎 Wassup! {bot} is listening.",
	"howdy":           "🤠 Howdy! {bot} from {workspace} at your service.",
	"greetings":       "🙏 Greetings! How can {bot} help you today?",
	"good morning":    "🌅 Good morning! {bot} from {workspace} is here to help.",
	"good afternoon":  "☀️ Good afternoon! What can I do for you?",
	"good evening":    "🌇 Good evening! {bot} is here if you need anything.",
	"good night":      "🌙 Good night! Come back any time, {workspace} will be here.",
	"morning":         "🌅 Morning! How can I help today?",
	"evening":         "🌇 Evening! What can {bot} do for you?",
	"hola":            "👋 Hola! {bot} from {workspace} here.",
	"namaste":         "🙏 Namaste! How may {bot} help you?",
	"salam":           "🤝 Salam! {bot} from {workspace} at your service.",
	"long time no see": "😊 It's been a while! Welcome back to {workspace}.",

	// farewells
	"bye":            "👋 Bye! Thanks for visiting {workspace}.",
	"goodbye":        "👋 Goodbye! {bot} is always here if you need help.",
	"bye bye":        "👋 Bye bye! Take care.",
	"see you":        "👋 See you soon! {bot} from {workspace}.",
	"see ya":         "✌️ See ya! Come back any time.",
	"see you later":  "👋 See you later!",
	"take care":      "💙 You too! Take care.",
	"cya":            "✌️ Cya! {bot} signing off.",
	"later":          "⏰ Later! {workspace} will be here.",
	"ttyl":           "💬 Talk to you later!",
	"have a nice day": "🌞 You too! Thanks for stopping by {workspace}.",
	"gn":             "🌙 Good night!",

	// thanks
	"thanks":           "🤝 You're welcome! Glad to help with {workspace}.",
	"thank you":        "🙏 You're most welcome! {bot} from {workspace}.",
	"thank u":          "😊 You're welcome!",
	"thanks a lot":     "👏 Any time! Happy to help.",
	"thank you so much": "🥰 It was my pleasure!",
	"thx":              "👍 You got it!",
	"ty":               "🤗 My pleasure!",
	"tysm":             "🥰 Happy to help!",
	"much appreciated": "🙌 Glad I could help, {bot} from {workspace}.",
	"appreciate it":    "💫 Any time!",

	// small talk
	"how are you":       "😄 I'm doing great, thanks for asking! How can I help?",
	"how r u":           "😁 All good here! How can I help?",
	"how's it going":    "👍 Going well! What can I do for you?",
	"hows it going":     "👍 Going well! What can I do for you?",
	"who are you":       "🤖 I'm {bot}, the virtual assistant for {workspace}.",
	"what's your name":  "🪪 My name is {bot}, representing {workspace}.",
	"whats your name":   "🪪 My name is {bot}, representing {workspace}.",
	"what is your name": "🪪 My name is {bot}, representing {workspace}.",
	"are you a bot":     "🤖 Yes! I'm {bot}, the assistant for {workspace}.",
	"are you human":     "🤖 Nope, I'm {bot}, an assistant for {workspace}.",
	"what can you do":   "🧠 I can answer questions about {workspace}. Ask away!",
	"who made you":      "👨‍💻 I was set up by the {workspace} team.",
	"nice to meet you":  "🤝 Nice to meet you too! I'm {bot}.",
	"tell me a joke":    "😂 Why did the computer go to therapy? Too many bytes.",
	"i'm fine":          "😊 Glad to hear it! What can {bot} help with?",
	"im fine":           "😊 Glad to hear it! What can {bot} help with?",

	// acknowledgments
	"ok":      "👌 Okay!",
	"okay":    "✅ Okay!",
	"k":       "👍 Got it!",
	"kk":      "✌️ KK!",
	"sure":    "👍 Sure thing!",
	"yes":     "🙂 Great!",
	"yep":     "🙌 Yep!",
	"yeah":    "😄 Yeah!",
	"no":      "🙂 No problem.",
	"nope":    "🙂 No problem!",
	"cool":    "😎 Cool!",
	"nice":    "😊 Glad you think so!",
	"great":   "🎉 Great!",
	"awesome": "🤩 Awesome!",
	"got it":  "👍 Perfect!",
	"lol":     "😂 Glad I made you smile!",
	"haha":    "😆 Haha!",
}

var greetingTrim = strings.NewReplacer("!", "", "?", "", ".", "", ",", "")

// Greeting returns the canned reply for a message that is exactly a
// known greeting, ignoring case, surrounding whitespace and trailing
// punctuation.
func Greeting(message, botName, workspaceName string) (string, bool) {
	key := normalizeGreeting(message)
	if key == "" {
		return "", false
	}
	tmpl, ok := greetings[key]
	if !ok {
		return "", false
	}

	if strings.TrimSpace(botName) == "" {
		botName = defaultBotName
	}
	if strings.TrimSpace(workspaceName) == "" {
		workspaceName = defaultWorkspaceName
	}
	return strings.NewReplacer("{bot}", botName, "{workspace}", workspaceName).Replace(tmpl), true
}

func normalizeGreeting(message string) string {
	s := strings.ToLower(strings.TrimSpace(message))
	s = strings.TrimSpace(greetingTrim.Replace(s))
	return strings.Join(strings.Fields(s), " ")
}
