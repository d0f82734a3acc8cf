package question

// fallbackQuestions is the fixed last-resort pool, consulted only after the
// generative source and the seed pool are exhausted.
var fallbackQuestions = []string{
	"Who is most likely to become famous?",
	"Who is most likely to sleep through their alarm?",
	"Who is most likely to win a reality TV show?",
	"Who is most likely to move to another country?",
	"Who is most likely to cry during a movie?",
	"Who is most likely to forget their own birthday?",
	"Who is most likely to survive a zombie apocalypse?",
	"Who is most likely to become a millionaire?",
	"Who is most likely to get lost in their own city?",
	"Who is most likely to adopt five pets?",
	"Who is most likely to laugh at the wrong moment?",
	"Who is most likely to run a marathon?",
	"Who is most likely to start their own company?",
	"Who is most likely to eat dessert before dinner?",
	"Who is most likely to text back three days late?",
	"Who is most likely to win an argument with a stranger?",
	"Who is most likely to become a teacher?",
	"Who is most likely to go viral on the internet?",
	"Who is most likely to stay calm in an emergency?",
	"Who is most likely to plan a surprise party?",
}
