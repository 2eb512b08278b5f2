package service

// fallbackQuote is used when no quote is configured.
const fallbackQuote = "Keep reading, keep growing!"

var motivationQuotes = []string{
	"“A reader lives a thousand lives before he dies . . . The man who never reads lives only one.” – George R.R. Martin",
	"“So many books, so little time.” – Frank Zappa",
	"“Books are a uniquely portable magic.” – Stephen King",
	"“Reading gives us someplace to go when we have to stay where we are.” – Mason Cooley",
	"“Once you learn to read, you will be forever free.” – Frederick Douglass",
	"“A room without books is like a body without a soul.” – Cicero",
	"“There is no friend as loyal as a book.” – Ernest Hemingway",
	"“We read to know we're not alone.” – William Nicholson",
	"“The only thing that you absolutely have to know is the location of the library.” – Albert Einstein",
	"“Reading is essential for those who seek to rise above the ordinary.” – Jim Rohn",
	"“You can never get a cup of tea large enough or a book long enough to suit me.” – C.S. Lewis",
	"“That’s the thing about books. They let you travel without moving your feet.” – Jhumpa Lahiri",
	"“A book is a dream that you hold in your hands.” – Neil Gaiman",
	"“The more that you read, the more things you will know. The more that you learn, the more places you’ll go.” – Dr. Seuss",
	"“A well-read mind is a well-fed mind.”",
	"“Books don’t just go with you, they take you where you’ve never been.”",
	"“In the case of good books, the point is not to see how many of them you can get through, but how many can get through to you.” – Mortimer J. Adler",
	"“Books are mirrors: you only see in them what you already have inside you.” – Carlos Ruiz Zafón",
	"“Reading is to the mind what exercise is to the body.” – Joseph Addison",
	"“Today a reader, tomorrow a leader.” – Margaret Fuller",
	"“The man who does not read has no advantage over the man who cannot read.” – Mark Twain",
	"“Libraries will get you through times of no money better than money will get you through times of no libraries.” – Anne Herbert",
	"“Between the pages of a book is a wonderful place to be.”",
	"“Reading one book is like eating one potato chip.” – Diane Duane",
	"“Fill your house with stacks of books, in all the crannies and all the nooks.” – Dr. Seuss",
	"“Books are the quietest and most constant of friends; they are the most accessible and wisest of counselors, and the most patient of teachers.” – Charles W. Eliot",
}

var welcomeGreetings = []string{
	"Welcome,",
	"Hello there,",
	"Good to see you,",
	"Glad you're here,",
	"Greetings,",
	"Hey there,",
	"Nice to see you,",
	"Hi there,",
	"Welcome back,",
}
